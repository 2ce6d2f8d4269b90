package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// MaxFileSize максимальный размер загружаемого файла
const MaxFileSize = 10 * 1024 * 1024

// Сообщения об ошибках, которые видит пользователь
const (
	MsgFileRequired  = "Please select a file to upload"
	MsgFileType      = "Only JPEG, PNG, and DICOM files are allowed"
	MsgFileSize      = "File size must be less than 10MB"
	MsgFileName      = "File name must not be empty"
	MsgThreshold     = "Threshold must be between 0 and 1"
	MsgAnalysisType  = "Analysis type must be xray or mri"
	dicomMagicOffset = 128
)

var allowedTypes = map[string]bool{
	"image/jpeg":        true,
	"image/jpg":         true,
	"image/png":         true,
	"image/dicom":       true,
	"application/dicom": true,
}

// Error ошибка валидации конкретного поля
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Upload загружаемый файл и параметры анализа
type Upload struct {
	FileName    string  `validate:"required,notblank"`
	ContentType string  `validate:"allowed_type"`
	Size        int64   `validate:"gt=0,lte=10485760"`
	Threshold   float64 `validate:"gte=0,lte=1"`
	Type        string  `validate:"oneof=xray mri"`
	Data        []byte  `validate:"-"`
}

// Validator проверяет загрузки
type Validator struct {
	validate *validator.Validate
}

// New создает валидатор с правилами загрузки
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("allowed_type", func(fl validator.FieldLevel) bool {
		return allowedTypes[strings.ToLower(fl.Field().String())]
	})
	return &Validator{validate: v}
}

// DetectContentType определяет MIME тип по содержимому; если по содержимому
// тип не распознан как допустимый, используется заявленный клиентом тип.
func DetectContentType(declared string, data []byte) string {
	if isDICOM(data) {
		return "application/dicom"
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if allowedTypes[m.String()] {
			return m.String()
		}
	}
	if declared != "" {
		// "image/png; charset=..." -> "image/png"
		base, _, _ := strings.Cut(declared, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return detected.String()
}

// isDICOM проверяет преамбулу DICOM Part 10: 128 байт и "DICM"
func isDICOM(data []byte) bool {
	return len(data) >= dicomMagicOffset+4 && string(data[dicomMagicOffset:dicomMagicOffset+4]) == "DICM"
}

// Validate возвращает *Error для первого нарушенного правила
func (v *Validator) Validate(u Upload) error {
	if len(u.Data) == 0 && u.Size == 0 && u.FileName == "" {
		return &Error{Field: "file", Message: MsgFileRequired}
	}

	err := v.validate.Struct(u)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate upload: %w", err)
	}

	switch fe := fieldErrs[0]; fe.Field() {
	case "FileName":
		return &Error{Field: "file", Message: MsgFileName}
	case "Size":
		if fe.Tag() == "gt" {
			return &Error{Field: "file", Message: MsgFileRequired}
		}
		return &Error{Field: "file", Message: MsgFileSize}
	case "ContentType":
		return &Error{Field: "file", Message: MsgFileType}
	case "Threshold":
		return &Error{Field: "threshold", Message: MsgThreshold}
	case "Type":
		return &Error{Field: "type", Message: MsgAnalysisType}
	default:
		return &Error{Field: fe.Field(), Message: fe.Error()}
	}
}
