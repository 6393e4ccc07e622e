package service

import "github.com/go-playground/validator/v10"

// validate is shared by the services for entity and field checks.
var validate = validator.New()
