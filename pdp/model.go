// pdp/model.go
package pdp

import "github.com/albeach/DIVE-V3-sub011/model"

// DecisionRequest is the payload sent to the external policy decision point.
type DecisionRequest struct {
	Subject  model.SubjectAttributes  `json:"subject"`
	Resource model.ResourceAttributes `json:"resource"`
	Action   string                   `json:"action"`
	Context  model.RequestContext     `json:"context"`
}

// DecisionResponse is the external PDP's verdict.
type DecisionResponse struct {
	Allow       bool     `json:"allow"`
	Reason      string   `json:"reason"`
	Obligations []string `json:"obligations,omitempty"`
}
