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

package cloudflare

import (
	"encoding/json"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

const (
	// TargetURL is the only page rule target type.
	TargetURL = "url"
	// OperatorMatches matches request URLs against a wildcard pattern.
	OperatorMatches = "matches"
	// ActionForwardingURL redirects matching requests.
	ActionForwardingURL = "forwarding_url"
	// StatusActive marks an enabled page rule.
	StatusActive = "active"
)

// Envelope wraps every API response.
type Envelope struct {
	Success    bool            `json:"success"`
	Errors     []Message       `json:"errors,omitempty"`
	Messages   []Message       `json:"messages,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	ResultInfo *ResultInfo     `json:"result_info,omitempty"`
}

// Message is an error or informational message of a response.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo holds the pagination state of a list response.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// Account owning a zone.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Zone is a domain served by the edge network.
type Zone struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Status  string   `json:"status,omitempty"`
	Account *Account `json:"account,omitempty"`
}

// PageRule applies actions to requests matching its targets.
type PageRule struct {
	ID       string   `json:"id,omitempty"`
	Targets  []Target `json:"targets"`
	Actions  []Action `json:"actions"`
	Priority int      `json:"priority,omitempty"`
	Status   string   `json:"status,omitempty"`
}

// Target selects the requests a page rule applies to.
type Target struct {
	Target     string     `json:"target"`
	Constraint Constraint `json:"constraint"`
}

// Constraint of a target.
type Constraint struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Action of a page rule. The value shape depends on the action id.
type Action struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ForwardingValue is the value of a forwarding_url action.
type ForwardingValue struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
}

// NewForwardingPageRule returns an active page rule forwarding requests matching
// the rule pattern.
func NewForwardingPageRule(rule *api.ForwardingRule) (*PageRule, error) {
	value, err := json.Marshal(&ForwardingValue{URL: rule.TargetURL, StatusCode: rule.StatusCode})
	if err != nil {
		return nil, err
	}

	return &PageRule{
		Targets: []Target{{
			Target:     TargetURL,
			Constraint: Constraint{Operator: OperatorMatches, Value: rule.MatchPattern},
		}},
		Actions:  []Action{{ID: ActionForwardingURL, Value: value}},
		Priority: rule.Priority,
		Status:   StatusActive,
	}, nil
}

// Pattern returns the URL pattern of the first url target, or an empty string.
func (r *PageRule) Pattern() string {
	for _, target := range r.Targets {
		if target.Target == TargetURL {
			return target.Constraint.Value
		}
	}
	return ""
}

// ForwardingRule converts the page rule to a forwarding rule.
// Rules without a forwarding action have an empty target.
func (r *PageRule) ForwardingRule() api.ForwardingRule {
	rule := api.ForwardingRule{
		ID:           r.ID,
		MatchPattern: r.Pattern(),
		Priority:     r.Priority,
	}

	for _, action := range r.Actions {
		if action.ID != ActionForwardingURL {
			continue
		}
		var value ForwardingValue
		if err := json.Unmarshal(action.Value, &value); err == nil {
			rule.TargetURL = value.URL
			rule.StatusCode = value.StatusCode
		}
		break
	}

	return rule
}
