package http

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/database/query"
)

var (
	yearPattern = regexp.MustCompile(`^\d{4}(-\d{2}-\d{2})?$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	timestampLayouts = []string{time.DateTime, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly}
)

const (
	msgInvalidDate      = "Fecha inválida. Usa el formato YYYY-MM-DD."
	msgInvalidYear      = "Fecha inválida. Usa el formato YYYY-MM-DD o solo el año."
	msgInvalidTimestamp = "Fecha inválida. Usa el formato YYYY-MM-DD HH:MM."
)

// FormError carries every field that failed validation. Its message joins
// the distinct field messages in form order.
type FormError struct {
	Fields  validation.Errors
	message string
}

func (e *FormError) Error() string {
	return e.message
}

// decodeForm reads the posted fields of a resource, keyed by logical column
// name. Fields absent from the form are left out so an update keeps them;
// blank fields become NULL. Blank hidden fields (the user credential) are
// always left out.
func decodeForm(c *gin.Context, res *Resource) (query.Fields, error) {
	fields := query.Fields{}
	errs := validation.Errors{}
	var messages []string

	for _, col := range res.Store.Descriptor().Columns {
		if col.Internal {
			continue
		}
		value, present := formValue(c, col)
		if !col.Hidden {
			value = strings.TrimSpace(value)
		}
		if col.Hidden && value == "" {
			continue
		}

		if err := validation.Validate(value, fieldRules(res, col)...); err != nil {
			errs[col.Name] = err
			if !lo.Contains(messages, err.Error()) {
				messages = append(messages, err.Error())
			}
			continue
		}

		if !present {
			continue
		}
		if value == "" {
			fields[col.Name] = nil
		} else {
			fields[col.Name] = value
		}
	}

	if len(errs) > 0 {
		return nil, &FormError{Fields: errs, message: strings.Join(messages, " ")}
	}
	if res.Extra != nil {
		res.Extra(c, fields)
	}
	return fields, nil
}

// formValue returns the first posted value among the column's input keys.
func formValue(c *gin.Context, col query.Column) (string, bool) {
	for _, key := range append([]string{col.Name}, col.Inputs...) {
		if v, ok := c.GetPostForm(key); ok {
			return v, true
		}
	}
	return "", false
}

// fieldRules puts the resource's own rules first, so their messages win,
// then the checks implied by the column.
func fieldRules(res *Resource, col query.Column) []validation.Rule {
	rules := append([]validation.Rule{}, res.Rules[col.Name]...)
	if col.RequiredOnWrite {
		rules = append(rules, validation.Required.Error(fmt.Sprintf("El campo %s es obligatorio.", col.Name)))
	}

	switch col.Type {
	case query.KindInt:
		rules = append(rules, is.Int.Error(fmt.Sprintf("El campo %s es inválido.", col.Name)))
	case query.KindDate:
		rules = append(rules, validation.Date(time.DateOnly).Error(msgInvalidDate))
	case query.KindYear:
		rules = append(rules, validation.Match(yearPattern).Error(msgInvalidYear))
	case query.KindTimestamp:
		rules = append(rules, validation.By(validTimestamp))
	}
	return rules
}

func validTimestamp(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return errors.New(msgInvalidTimestamp)
}

func required(message string) validation.Rule {
	return validation.Required.Error(message)
}

func isNumber() validation.StringRule {
	return is.Int.Error("Debes ingresar un número válido.")
}
