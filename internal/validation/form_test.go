package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/domain"
)

func validForm() VisitorForm {
	return VisitorForm{
		Name:   "Juan Perez",
		Email:  "juan@example.com",
		Phone:  "809-123-4567",
		Age:    "30",
		Gender: "male",
	}
}

func TestValidateVisitor(t *testing.T) {
	t.Run("valid form has no errors", func(t *testing.T) {
		errs := ValidateVisitor(validForm())
		assert.True(t, errs.Valid())
	})

	t.Run("each failing field is reported on its own", func(t *testing.T) {
		f := validForm()
		f.Email = "not-an-email"
		f.Age = "4"

		errs := ValidateVisitor(f)
		require.Len(t, errs, 2)
		assert.Equal(t, MsgEmailInvalid, errs[FieldEmail])
		assert.Equal(t, MsgAgeInvalid, errs[FieldAge])
	})

	t.Run("blank name is required rather than malformed", func(t *testing.T) {
		f := validForm()
		f.Name = "   "
		assert.Equal(t, MsgNameRequired, ValidateVisitor(f)[FieldName])

		f.Name = "Juan 3"
		assert.Equal(t, MsgNameInvalid, ValidateVisitor(f)[FieldName])
	})

	t.Run("empty form reports every field", func(t *testing.T) {
		errs := ValidateVisitor(VisitorForm{})
		for _, field := range Fields {
			assert.NotEmpty(t, errs[field], "field %s", field)
		}
	})
}

func TestVisitorForm_SetGet(t *testing.T) {
	f, ok := VisitorForm{}.Set(FieldPhone, "829-000-1111")
	require.True(t, ok)
	assert.Equal(t, "829-000-1111", f.Get(FieldPhone))

	_, ok = f.Set("nickname", "JP")
	assert.False(t, ok)
	assert.Equal(t, "", f.Get("nickname"))
}

func TestVisitorForm_ToInput(t *testing.T) {
	f := validForm()
	f.Name = "juan  perez"
	f.Phone = "8091234567"

	in := f.ToInput()
	assert.Equal(t, domain.VisitorInput{
		Name:   "Juan Perez",
		Email:  "juan@example.com",
		Phone:  "809-123-4567",
		Age:    30,
		Gender: domain.GenderMale,
	}, in)
}
