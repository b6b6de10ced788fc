package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/terrarium/internal/errs"
	"github.com/and161185/terrarium/internal/model"
)

// Multipart field names of the create endpoint.
const (
	FieldImage             = "selectImage"
	FieldUserID            = "userid"
	FieldNickname          = "nickname"
	FieldType              = "type"
	FieldLastWatered       = "lastWatered"
	FieldWateringFrequency = "wateringFrequency"
	FieldNotes             = "notes"
)

// Create validates p and posts it as multipart/form-data to plants/add.
// An empty img sends no file part. Validation failures never reach the network.
func (c *Client) Create(ctx context.Context, p model.Plant, img model.ImageRef) (Result, error) {
	if missing := model.MissingRequired(p); len(missing) > 0 {
		err := &errs.ValidationError{Fields: missing}
		c.log.Info("create rejected", zap.Strings("missing", missing))
		return Result{}, err
	}

	body, contentType, err := c.createPayload(p, img)
	if err != nil {
		c.log.Error("build create payload", zap.Error(err))
		return Result{}, fmt.Errorf("%s: build payload: %w", OpCreate, err)
	}
	req, err := c.newRequest(ctx, OpCreate, http.MethodPost, "plants/add", body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", contentType)

	status, resp, err := c.do(req, OpCreate)
	if err != nil {
		return Result{}, err
	}
	res := Result{Op: OpCreate, Nickname: p.Nickname, StatusCode: status, PlantID: createdID(resp)}
	c.log.Info("plant created",
		zap.String("nickname", p.Nickname),
		zap.String("plantid", res.PlantID),
		zap.Bool("image", !img.Empty()),
	)
	return res, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// createPayload writes the image part (if any) followed by the scalar fields.
func (c *Client) createPayload(p model.Plant, img model.ImageRef) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if !img.Empty() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			FieldImage, quoteEscaper.Replace(img.Filename())))
		h.Set("Content-Type", img.MIMEType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		f, err := c.open(img)
		if err != nil {
			return nil, "", fmt.Errorf("open image: %w", err)
		}
		_, err = io.Copy(part, f)
		_ = f.Close()
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
	}

	fields := []struct{ name, value string }{
		{FieldUserID, p.UserID},
		{FieldNickname, p.Nickname},
		{FieldType, p.Type},
		{FieldLastWatered, model.FormatTimestamp(p.LastWatered)},
		{FieldWateringFrequency, p.WateringFrequency},
		{FieldNotes, p.Notes},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// createdID pulls the new plant id out of a create response when the server sends one.
func createdID(body []byte) string {
	var out struct {
		PlantID string `json:"plantid"`
		ID      string `json:"_id"`
	}
	if json.Unmarshal(body, &out) != nil {
		return ""
	}
	if out.PlantID != "" {
		return out.PlantID
	}
	return out.ID
}

// updateBody is the full field set sent on every update.
type updateBody struct {
	UserID            string `json:"userid"`
	Nickname          string `json:"nickname"`
	Type              string `json:"type"`
	WateringFrequency string `json:"wateringFrequency"`
	LastWatered       string `json:"lastWatered"`
	Notes             string `json:"notes"`
	Image             string `json:"image"`
}

// Update posts the whole record as JSON to plants/update/{plantID}. Fields are not validated.
func (c *Client) Update(ctx context.Context, plantID string, p model.Plant) (Result, error) {
	if plantID == "" {
		return Result{}, &errs.ValidationError{Fields: []string{"plantid"}, Message: "missing plant id"}
	}
	ub := updateBody{
		UserID:            p.UserID,
		Nickname:          p.Nickname,
		Type:              p.Type,
		WateringFrequency: p.WateringFrequency,
		Notes:             p.Notes,
		Image:             p.Image,
	}
	if !p.LastWatered.IsZero() {
		ub.LastWatered = model.FormatTimestamp(p.LastWatered)
	}
	b, err := json.Marshal(ub)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", OpUpdate, err)
	}

	req, err := c.newRequest(ctx, OpUpdate, http.MethodPost, "plants/update/"+url.PathEscape(plantID), bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, _, err := c.do(req, OpUpdate)
	if err != nil {
		return Result{}, err
	}
	c.log.Info("plant updated", zap.String("plantid", plantID), zap.String("nickname", p.Nickname))
	return Result{Op: OpUpdate, PlantID: plantID, Nickname: p.Nickname, StatusCode: status}, nil
}

// Delete removes plants/{plantID}. nickname only feeds the result message.
func (c *Client) Delete(ctx context.Context, plantID, nickname string) (Result, error) {
	if plantID == "" {
		return Result{}, &errs.ValidationError{Fields: []string{"plantid"}, Message: "missing plant id"}
	}
	req, err := c.newRequest(ctx, OpDelete, http.MethodDelete, "plants/"+url.PathEscape(plantID), nil)
	if err != nil {
		return Result{}, err
	}
	status, _, err := c.do(req, OpDelete)
	if err != nil {
		return Result{}, err
	}
	c.log.Info("plant deleted", zap.String("plantid", plantID), zap.String("nickname", nickname))
	return Result{Op: OpDelete, PlantID: plantID, Nickname: nickname, StatusCode: status}, nil
}
