// Copyright (c) The gleich-tech-switch Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fake

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/willgleich/gleich-tech-switch/pkg/providers/secretmanager"
)

// AddSecret stores the value of the latest version of a secret.
func (c *Cloud) AddSecret(project, secret, value string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.secrets[secretmanager.VersionName(project, secret, secretmanager.LatestVersion)] = value
}

func (c *Cloud) handleSecretAccess(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if !strings.HasSuffix(path, ":access") {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", path))
		return
	}

	name := strings.TrimSuffix(path, ":access")
	value, ok := c.secrets[name]
	if !ok {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("secret version %s not found", name))
		return
	}

	writeJSON(w, http.StatusOK, &secretmanager.AccessResponse{
		Name:    name,
		Payload: secretmanager.SecretPayload{Data: base64.StdEncoding.EncodeToString([]byte(value))},
	})
}
