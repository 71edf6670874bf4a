package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks every error that must stop the process at startup.
var ErrConfiguration = errors.New("configuration error")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("intverbs", validateIntVerbs); err != nil {
		panic(err)
	}
	return v
}

// validateIntVerbs checks that a Sprintf template has exactly as many verbs as
// the tag parameter and that every one of them formats an integer.
func validateIntVerbs(fl validator.FieldLevel) bool {
	want, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	verbs, ok := formatVerbs(fl.Field().String())
	if !ok || len(verbs) != want {
		return false
	}
	for _, v := range verbs {
		if v != 'd' && v != 'v' {
			return false
		}
	}
	return true
}

// formatVerbs returns the verb letters of a fmt template, skipping "%%".
// ok is false when a verb is cut off at the end of the string.
func formatVerbs(s string) (verbs []rune, ok bool) {
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			continue
		}
		i++
		for i < len(runes) && strings.ContainsRune("+-# 0123456789.", runes[i]) {
			i++
		}
		if i >= len(runes) {
			return verbs, false
		}
		if runes[i] == '%' {
			continue
		}
		verbs = append(verbs, runes[i])
	}
	return verbs, true
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: %s failed on '%s' (%d problem(s))",
				ErrConfiguration, first.Namespace(), first.Tag(), len(verrs))
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// IsAdmin reports whether userID is the configured operator.
func (c *Config) IsAdmin(userID int64) bool {
	return userID != 0 && userID == c.Telegram.AdminUserID
}
