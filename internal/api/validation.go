package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tfgRecruit/internal/database"
)

var registerValidationsOnce sync.Once

// registerValidations adds the status enum tags used by request bodies.
func registerValidations() {
	registerValidationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("candidate_status", oneOfFunc(database.CandidateStatuses))
		_ = v.RegisterValidation("campaign_status", oneOfFunc(database.CampaignStatuses))
	})
}

// oneOfFunc accepts the empty string so "omitempty" style optional fields keep working.
func oneOfFunc(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}
