package config

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error of the chain returned when a
// struct fails its validation tags.
var ErrValidationFailed = errors.New("struct validation failed")

var validate *gvalidator.Validate

func init() {
	validate = gvalidator.New(gvalidator.WithRequiredStructEnabled())

	// solana_pubkey accepts strings that decode to a 32-byte base58 public key.
	if err := validate.RegisterValidation("solana_pubkey", func(fl gvalidator.FieldLevel) bool {
		_, err := solana.PublicKeyFromBase58(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("failed to register solana_pubkey validation: %v", err))
	}
}

// validateStruct checks v against its tags and returns a joined error
// rooted at ErrValidationFailed, one entry per failing field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, fe := range validationErrors {
		errs = append(errs, fmt.Errorf("'%s': value '%v' does not meet the requirements for the '%s' validation",
			fe.Namespace(), fe.Value(), fe.Tag()))
	}
	return errors.Join(errs...)
}
