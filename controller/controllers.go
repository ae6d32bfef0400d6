// controller/controllers.go
package controller

import (
	"github.com/albeach/DIVE-V3-sub011/audit"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	"github.com/albeach/DIVE-V3-sub011/kas"
	"github.com/albeach/DIVE-V3-sub011/registry"
	"github.com/albeach/DIVE-V3-sub011/revocation"
	"github.com/albeach/DIVE-V3-sub011/util"
)

type Controllers struct {
	Authorization *AuthorizationController
	Key           *KeyController
	Federation    *FederationController
	Revocation    *RevocationController
}

func InitializeControllers(
	eval *evaluator.Evaluator,
	keyRouter *kas.Router,
	reg *registry.InstanceRegistry,
	revocationStore *revocation.Store,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
) *Controllers {
	return &Controllers{
		Authorization: NewAuthorizationController(eval, auditService, validationUtil),
		Key:           NewKeyController(eval, keyRouter),
		Federation:    NewFederationController(reg, validationUtil),
		Revocation:    NewRevocationController(revocationStore),
	}
}
