package paysera

import (
	"errors"
	"strings"
)

// MerchantConfig identifies the merchant project. It is copied into the
// Client at construction and never modified afterwards.
type MerchantConfig struct {
	ProjectID    string
	SignPassword string
	TestMode     bool
}

// Validate fails with ErrConfiguration when a credential is missing.
func (c MerchantConfig) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return newError(KindConfiguration, "config", errors.New("project id is required"))
	}
	if strings.TrimSpace(c.SignPassword) == "" {
		return newError(KindConfiguration, "config", errors.New("sign password is required"))
	}
	return nil
}

func (c MerchantConfig) testFlag() string {
	if c.TestMode {
		return "1"
	}
	return "0"
}
