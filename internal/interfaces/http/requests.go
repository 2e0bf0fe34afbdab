package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/fund-review/internal/application/service"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/pkg/utils"
)

// Amount accepts a JSON number or a string such as "5,000"
type Amount float64

// AmountError reports an amount that could not be parsed
type AmountError struct {
	Raw string
	Err error
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %v", e.Raw, e.Err)
}

func (e *AmountError) Unwrap() error {
	return e.Err
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}

	v, err := utils.ParseAmount(raw)
	if err != nil {
		return &AmountError{Raw: raw, Err: err}
	}
	*a = Amount(v)
	return nil
}

func (a *Amount) float() *float64 {
	if a == nil {
		return nil
	}
	v := float64(*a)
	return &v
}

type lineItemRequest struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
	Amount  Amount `json:"amount"`
}

type applicationRequest struct {
	Type    string                 `json:"type"`
	Details entity.ActivityDetails `json:"details"`
	Items   []lineItemRequest      `json:"items"`
}

func (r applicationRequest) lineItems() []service.LineItemInput {
	items := make([]service.LineItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, service.LineItemInput{
			Name:    item.Name,
			Purpose: item.Purpose,
			Amount:  float64(item.Amount),
		})
	}
	return items
}

type decisionRequest struct {
	Decision       string  `json:"decision" validate:"required"`
	Comment        string  `json:"comment" validate:"max=2000"`
	AmountApproved *Amount `json:"amount_approved"`
}

type resubmitRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

type assignTeacherRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
}

// structValidator runs gin binding through the shared validator so request
// tags and service input tags follow the same rules and field names
type structValidator struct{}

func (structValidator) ValidateStruct(obj any) error {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return utils.ValidateStruct(obj)
}

func (structValidator) Engine() any {
	return utils.Validator()
}

// Multipart field names of the reimbursement form
const (
	fieldReceiptName     = "rec_name[]"
	fieldReceiptPurpose  = "rec_purpose[]"
	fieldReceiptAmount   = "rec_amount[]"
	fieldReceiptFile     = "rec_receipt[%d]"
	fieldActivityPhotos  = "activity_photos[]"
	fieldFeedbackPhotos  = "feedback_photos[]"
	fieldFeedbackPhoto   = "feedback_photo"
	fieldReimbursComment = "comment"
)

// reimbursementForm is the parsed multipart body shared by create and edit
type reimbursementForm struct {
	Items          []service.ReceiptInput
	ActivityPhotos []entity.Upload
	FeedbackPhotos []entity.Upload
	Comment        string
}

// parseReimbursementForm reads receipt rows, receipt files and photos.
// Receipt row i takes its file from rec_receipt[i]. Rows left entirely blank are skipped.
func parseReimbursementForm(c *gin.Context) (*reimbursementForm, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	names := form.Value[fieldReceiptName]
	purposes := form.Value[fieldReceiptPurpose]
	amounts := form.Value[fieldReceiptAmount]

	out := &reimbursementForm{Comment: firstValue(form.Value[fieldReimbursComment])}
	for i, name := range names {
		purpose := valueAt(purposes, i)
		rawAmount := strings.TrimSpace(valueAt(amounts, i))
		receipt, err := readFirst(form.File[fmt.Sprintf(fieldReceiptFile, i)])
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(name) == "" && strings.TrimSpace(purpose) == "" && rawAmount == "" && receipt == nil {
			continue
		}

		var amount float64
		if rawAmount != "" {
			amount, err = utils.ParseAmount(rawAmount)
			if err != nil {
				return nil, &AmountError{Raw: rawAmount, Err: err}
			}
		}

		out.Items = append(out.Items, service.ReceiptInput{
			Name:    name,
			Purpose: purpose,
			Amount:  amount,
			Receipt: receipt,
		})
	}

	if out.ActivityPhotos, err = readAll(form.File[fieldActivityPhotos]); err != nil {
		return nil, err
	}
	feedback := make([]*multipart.FileHeader, 0, len(form.File[fieldFeedbackPhotos])+1)
	feedback = append(feedback, form.File[fieldFeedbackPhotos]...)
	feedback = append(feedback, form.File[fieldFeedbackPhoto]...)
	if out.FeedbackPhotos, err = readAll(feedback); err != nil {
		return nil, err
	}

	return out, nil
}

func readAll(headers []*multipart.FileHeader) ([]entity.Upload, error) {
	uploads := make([]entity.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh == nil || fh.Filename == "" {
			continue
		}
		upload, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readFirst(headers []*multipart.FileHeader) (*entity.Upload, error) {
	uploads, err := readAll(headers)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

func readUpload(fh *multipart.FileHeader) (entity.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.Upload{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return entity.Upload{}, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return entity.Upload{FileName: fh.Filename, Content: content}, nil
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func firstValue(values []string) string {
	return valueAt(values, 0)
}
