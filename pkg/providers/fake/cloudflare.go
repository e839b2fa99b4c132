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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/willgleich/gleich-tech-switch/pkg/providers/cloudflare"
)

type cloudflareState struct {
	zones []cloudflare.Zone
	rules map[string][]cloudflare.PageRule
}

func newCloudflareState() *cloudflareState {
	return &cloudflareState{rules: make(map[string][]cloudflare.PageRule)}
}

// AddZone stores a zone owned by an account and returns its id.
func (c *Cloud) AddZone(accountID, name string) string {
	c.lock.Lock()
	defer c.lock.Unlock()

	zone := cloudflare.Zone{
		ID:      uuid.NewString(),
		Name:    name,
		Status:  "active",
		Account: &cloudflare.Account{ID: accountID},
	}
	c.cloudflare.zones = append(c.cloudflare.zones, zone)
	return zone.ID
}

// AddPageRule stores a page rule in a zone and returns its id.
func (c *Cloud) AddPageRule(zoneID string, rule cloudflare.PageRule) string {
	c.lock.Lock()
	defer c.lock.Unlock()
	rule.ID = uuid.NewString()
	c.cloudflare.rules[zoneID] = append(c.cloudflare.rules[zoneID], rule)
	return rule.ID
}

// PageRules returns the page rules stored in a zone.
func (c *Cloud) PageRules(zoneID string) []cloudflare.PageRule {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]cloudflare.PageRule(nil), c.cloudflare.rules[zoneID]...)
}

func (c *Cloud) routeCloudflare(r chi.Router) {
	r.Get("/zones", c.listZones)
	r.Get("/zones/{zone}/pagerules", c.listPageRules)
	r.Post("/zones/{zone}/pagerules", c.createPageRule)
	r.Delete("/zones/{zone}/pagerules/{rule}", c.deletePageRule)
}

func writeCloudflareResult(w http.ResponseWriter, result any, info *cloudflare.ResultInfo) {
	encoded, err := json.Marshal(result)
	if err != nil {
		writeCloudflareError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &cloudflare.Envelope{
		Success:    true,
		Errors:     []cloudflare.Message{},
		Messages:   []cloudflare.Message{},
		Result:     encoded,
		ResultInfo: info,
	})
}

func writeCloudflareError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &cloudflare.Envelope{
		Success: false,
		Errors:  []cloudflare.Message{{Code: 1000 + status, Message: msg}},
	})
}

func (c *Cloud) hasZone(id string) bool {
	for _, zone := range c.cloudflare.zones {
		if zone.ID == id {
			return true
		}
	}
	return false
}

func (c *Cloud) listZones(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	accountID := query.Get("account.id")

	zones := []cloudflare.Zone{}
	for _, zone := range c.cloudflare.zones {
		if accountID == "" || (zone.Account != nil && zone.Account.ID == accountID) {
			zones = append(zones, zone)
		}
	}

	page, perPage := 1, len(zones)
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	if n, err := strconv.Atoi(query.Get("per_page")); err == nil && n > 0 {
		perPage = n
	}
	if c.PageSize > 0 && c.PageSize < perPage {
		perPage = c.PageSize
	}
	if perPage == 0 {
		perPage = 1
	}

	totalPages := (len(zones) + perPage - 1) / perPage
	start := min((page-1)*perPage, len(zones))
	end := min(start+perPage, len(zones))

	writeCloudflareResult(w, zones[start:end], &cloudflare.ResultInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		Count:      end - start,
		TotalCount: len(zones),
	})
}

func (c *Cloud) listPageRules(w http.ResponseWriter, r *http.Request) {
	zoneID := chi.URLParam(r, "zone")
	if !c.hasZone(zoneID) {
		writeCloudflareError(w, http.StatusNotFound, fmt.Sprintf("zone %s not found", zoneID))
		return
	}

	rules := append([]cloudflare.PageRule{}, c.cloudflare.rules[zoneID]...)
	writeCloudflareResult(w, rules, nil)
}

func (c *Cloud) createPageRule(w http.ResponseWriter, r *http.Request) {
	zoneID := chi.URLParam(r, "zone")
	if !c.hasZone(zoneID) {
		writeCloudflareError(w, http.StatusNotFound, fmt.Sprintf("zone %s not found", zoneID))
		return
	}

	var rule cloudflare.PageRule
	if err := decodeBody(r, &rule); err != nil {
		writeCloudflareError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rule.Pattern() == "" || len(rule.Actions) == 0 {
		writeCloudflareError(w, http.StatusBadRequest, "page rule requires a url target and an action")
		return
	}

	rule.ID = uuid.NewString()
	c.cloudflare.rules[zoneID] = append(c.cloudflare.rules[zoneID], rule)
	writeCloudflareResult(w, &rule, nil)
}

func (c *Cloud) deletePageRule(w http.ResponseWriter, r *http.Request) {
	zoneID := chi.URLParam(r, "zone")
	ruleID := chi.URLParam(r, "rule")

	rules := c.cloudflare.rules[zoneID]
	for i, rule := range rules {
		if rule.ID == ruleID {
			c.cloudflare.rules[zoneID] = append(rules[:i], rules[i+1:]...)
			writeCloudflareResult(w, map[string]string{"id": ruleID}, nil)
			return
		}
	}
	writeCloudflareError(w, http.StatusNotFound, fmt.Sprintf("page rule %s not found", ruleID))
}
