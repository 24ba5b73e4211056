// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/citic/botNeumann-sub000/internal/mi"
)

// ResponseView is the JSON projection of a parsed record served by the API
// and carried in event payloads.
type ResponseView struct {
	Kind   string  `json:"kind"`
	Class  string  `json:"class,omitempty"` // result class or async reason
	Causal *int    `json:"causal,omitempty"`
	Tag    string  `json:"tag,omitempty"`
	Text   string  `json:"text,omitempty"`
	Items  mi.Item `json:"items"`
	Raw    string  `json:"raw,omitempty"`
}

// NewResponseView projects r. Non-string user data is rendered with %v.
func NewResponseView(r *mi.Response) ResponseView {
	v := ResponseView{
		Kind:  r.Kind.String(),
		Text:  r.Text,
		Items: r.Items,
		Raw:   r.Raw,
	}
	switch {
	case r.Kind == mi.KindResult:
		v.Class = r.Result.String()
	case r.Kind.IsAsync():
		v.Class = r.Reason.String()
	}
	if r.HasCausal {
		c := r.Causal
		v.Causal = &c
	}
	switch ud := r.UserData.(type) {
	case nil:
	case string:
		v.Tag = ud
	default:
		v.Tag = fmt.Sprint(ud)
	}
	return v
}
