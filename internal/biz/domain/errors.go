package domain

import "errors"

var (
	// ErrNoDocument is returned when file mode finds no document
	ErrNoDocument = errors.New("no document attached")
	// ErrNoImagePrompt is returned when image mode has nothing to draw
	ErrNoImagePrompt = errors.New("no image prompt")
	// ErrUnsupportedDocument is returned for formats that cannot be converted
	ErrUnsupportedDocument = errors.New("unsupported document format")
	// ErrConversionFailed is returned when a document could not be converted
	ErrConversionFailed = errors.New("document conversion failed")
)

// ErrorNotice is shown to the user when a command fails unexpectedly
const ErrorNotice = "❌ Виникла помилка під час обробки запиту."

// UserMessage maps input errors to an actionable message.
// Any other error yields the generic notice.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoDocument):
		return "❌ Прикріпіть документ або дайте відповідь на повідомлення з документом."
	case errors.Is(err, ErrNoImagePrompt):
		return "❌ Вкажіть опис зображення або дайте відповідь на повідомлення з текстом."
	case errors.Is(err, ErrUnsupportedDocument):
		return "❌ Цей формат файлу не підтримується."
	case errors.Is(err, ErrConversionFailed):
		return "❌ Не вдалося конвертувати файл у PDF."
	default:
		return ErrorNotice
	}
}

// IsInputError reports whether err is a user input error rather than a failure
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoDocument) ||
		errors.Is(err, ErrNoImagePrompt) ||
		errors.Is(err, ErrUnsupportedDocument) ||
		errors.Is(err, ErrConversionFailed)
}
