package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ArgumentValidatorContext is handed to validators after argument coercion.
type ArgumentValidatorContext struct {
	Field     *Field
	Arguments map[string]any
	errors    []string
}

func (c *ArgumentValidatorContext) AddError(msg string) {
	c.errors = append(c.errors, msg)
}

func (c *ArgumentValidatorContext) Errors() []string { return c.errors }

// Validator checks coerced arguments before the field expression is built.
type Validator interface {
	Validate(ctx context.Context, vc *ArgumentValidatorContext)
}

type ValidatorFunc func(ctx context.Context, vc *ArgumentValidatorContext)

func (f ValidatorFunc) Validate(ctx context.Context, vc *ArgumentValidatorContext) { f(ctx, vc) }

func (f *Field) validateArguments(ctx context.Context, args map[string]any) error {
	if len(f.Validators) == 0 {
		return nil
	}
	vc := &ArgumentValidatorContext{Field: f, Arguments: args}
	for _, v := range f.Validators {
		v.Validate(ctx, vc)
	}
	if len(vc.errors) > 0 {
		return &ArgumentError{Field: f.Name, Messages: vc.errors}
	}
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func tagValidate() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// TagValidator validates arguments with go-playground validator tags keyed
// by argument name, e.g. {"first": "omitempty,min=0,max=100"}. Absent
// arguments are only checked by tags starting with "required".
func TagValidator(tags map[string]string) Validator {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return ValidatorFunc(func(_ context.Context, vc *ArgumentValidatorContext) {
		for _, name := range names {
			tag := tags[name]
			v, ok := vc.Arguments[name]
			if !ok || v == nil {
				if strings.HasPrefix(tag, "required") {
					vc.AddError(fmt.Sprintf("argument '%s' is required", name))
				}
				continue
			}
			if err := tagValidate().Var(v, tag); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					for _, fe := range verrs {
						vc.AddError(describe(name, fe))
					}
					continue
				}
				vc.AddError(fmt.Sprintf("argument '%s': %v", name, err))
			}
		}
	})
}

func describe(name string, fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("argument '%s' failed the '%s' check", name, fe.Tag())
	}
	return fmt.Sprintf("argument '%s' failed the '%s=%s' check", name, fe.Tag(), fe.Param())
}
