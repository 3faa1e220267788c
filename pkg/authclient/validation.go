package authclient

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	reUsername   = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	rePersonName = regexp.MustCompile(`^[\p{L}\s'-]{2,50}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

// Messages keyed by validator tag.
var validationMessages = map[string]string{
	"required":       "Ce champ est obligatoire.",
	"email":          "Veuillez saisir une adresse email valide.",
	"username":       "Le nom d'utilisateur doit contenir 3 à 20 caractères : lettres, chiffres et underscores uniquement.",
	"personname":     "Le nom doit contenir 2 à 50 lettres.",
	"strongpassword": "Le mot de passe doit contenir au moins 8 caractères avec une majuscule, une minuscule, un chiffre et un caractère spécial.",
	"eqfield":        "Les mots de passe ne correspondent pas.",
}

// ValidationErrors maps JSON field names to a message. It is returned by
// client side validation before any request is sent.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := v.fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns the message of the alphabetically first field.
func (v ValidationErrors) First() string {
	keys := v.fields()
	if len(keys) == 0 {
		return ""
	}
	return v[keys[0]]
}

func (v ValidationErrors) fields() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return reUsername.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
			return rePersonName.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			score, missing := PasswordStrength(fl.Field().String())
			return score > 0 && len(missing) == 0
		})
	})
	return validate
}

// Validate checks the registration payload. Returns nil or ValidationErrors.
func (r RegisterRequest) Validate() error {
	err := validatorInstance().Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = MsgValidation
		}
		out[fe.Field()] = msg
	}
	return out
}

// PasswordStrength scores a password from 0 to 6: one point each for
// length >= 8, an upper case letter, a lower case letter, a digit and a
// special character, plus a bonus point for length >= 12. Feedback lists
// the missing requirements.
func PasswordStrength(password string) (score int, feedback []string) {
	if password == "" {
		return 0, nil
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	checks := []struct {
		ok   bool
		hint string
	}{
		{len([]rune(password)) >= 8, "At least 8 characters"},
		{upper, "At least one uppercase letter"},
		{lower, "At least one lowercase letter"},
		{digit, "At least one number"},
		{special, "At least one special character"},
	}
	for _, c := range checks {
		if c.ok {
			score++
		} else {
			feedback = append(feedback, c.hint)
		}
	}

	if len([]rune(password)) >= 12 {
		score++
	}
	return score, feedback
}
