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

package google

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Duration is a time.Duration encoded in JSON the way Google APIs expect it (e.g., "60s").
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

// MarshalJSON encodes the duration as a JSON string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(durationpb.New(d.Duration))
}

// UnmarshalJSON decodes a duration JSON string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var pb durationpb.Duration
	if err := protojson.Unmarshal(data, &pb); err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	if err := pb.CheckValid(); err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	d.Duration = pb.AsDuration()
	return nil
}
