package service

import "github.com/khoahotran/devconnect/pkg/validation"

// InputValidator checks a raw field set before it reaches the store.
type InputValidator interface {
	Validate(input any) validation.Result
}
