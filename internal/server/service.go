package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/receiptbox/internal/classify"
	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/export"
	"github.com/joseph-ayodele/receiptbox/internal/receipts"
)

// ReceiptService adapts receipts.Service and export.Service to the Struct-based RPCs.
type ReceiptService struct {
	receipts   *receipts.Service
	exports    *export.Service
	classifier *classify.Classifier
	logger     *slog.Logger
}

func NewReceiptService(svc *receipts.Service, exports *export.Service, classifier *classify.Classifier, logger *slog.Logger) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = classify.New(nil)
	}
	return &ReceiptService{receipts: svc, exports: exports, classifier: classifier, logger: logger}
}

type parseTextRequest struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type scanRequest struct {
	Image       []byte `json:"image"` // base64 in JSON
	ContentType string `json:"content_type"`
}

type idRequest struct {
	ID string `json:"id"`
}

type listRequest struct {
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	From   *entity.Date `json:"from"`
	To     *entity.Date `json:"to"`
}

type updateRequest struct {
	ID string `json:"id"`
	entity.ReceiptPatch
}

type connectSheetRequest struct {
	SheetID      string     `json:"sheet_id"`
	SheetName    string     `json:"sheet_name"`
	SheetURL     string     `json:"sheet_url"`
	TemplateType *string    `json:"template_type"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenExpiry  *time.Time `json:"token_expiry"`
}

type syncRequest struct {
	ReceiptID string `json:"receipt_id"`
	SheetID   string `json:"sheet_id"`
}

type exportRequest struct {
	Format string       `json:"format"`
	From   *entity.Date `json:"from"`
	To     *entity.Date `json:"to"`
}

type ExportReply struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type classifyRequest struct {
	Vendor string `json:"vendor"`
}

// reply converts a result or an error into the wire form.
func (s *ReceiptService) reply(method string, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		s.logger.Warn("rpc failed", "method", method, "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := toStruct(v)
	if err != nil {
		s.logger.Error("failed to encode reply", "method", method, "error", err)
		return nil, common.InternalError("encode reply")
	}
	return out, nil
}

func decode[T any](in *structpb.Struct) (T, error) {
	var req T
	err := fromStruct(in, &req)
	return req, err
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, common.InvalidArgumentErrorf("id must be a UUID: %q", raw)
	}
	return id, nil
}

func (s *ReceiptService) ParseText(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[parseTextRequest](in)
	if err != nil {
		return s.reply("ParseText", nil, err)
	}
	parsed, err := s.receipts.ParseText(req.Text, req.Confidence)
	return s.reply("ParseText", parsed, err)
}

func (s *ReceiptService) Scan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Scan", nil, err)
	}
	req, err := decode[scanRequest](in)
	if err != nil {
		return s.reply("Scan", nil, err)
	}
	res, err := s.receipts.Scan(ctx, userID, req.Image, req.ContentType)
	return s.reply("Scan", res, err)
}

func (s *ReceiptService) Save(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Save", nil, err)
	}
	draft, err := decode[entity.ReceiptDraft](in)
	if err != nil {
		return s.reply("Save", nil, err)
	}
	rec, err := s.receipts.Save(ctx, userID, draft)
	return s.reply("Save", rec, err)
}

func (s *ReceiptService) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Get", nil, err)
	}
	req, err := decode[idRequest](in)
	if err != nil {
		return s.reply("Get", nil, err)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	rec, err := s.receipts.Get(ctx, userID, id)
	return s.reply("Get", rec, err)
}

func (s *ReceiptService) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("List", nil, err)
	}
	req, err := decode[listRequest](in)
	if err != nil {
		return s.reply("List", nil, err)
	}
	page, err := s.receipts.List(ctx, userID, entity.ListOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
		From:   req.From,
		To:     req.To,
	})
	return s.reply("List", page, err)
}

func (s *ReceiptService) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Update", nil, err)
	}
	req, err := decode[updateRequest](in)
	if err != nil {
		return s.reply("Update", nil, err)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	rec, err := s.receipts.Update(ctx, userID, id, req.ReceiptPatch)
	return s.reply("Update", rec, err)
}

func (s *ReceiptService) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Delete", nil, err)
	}
	req, err := decode[idRequest](in)
	if err != nil {
		return s.reply("Delete", nil, err)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.reply("Delete", nil, s.receipts.Delete(ctx, userID, id))
}

func (s *ReceiptService) Reparse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Reparse", nil, err)
	}
	req, err := decode[idRequest](in)
	if err != nil {
		return s.reply("Reparse", nil, err)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	parsed, err := s.receipts.Reparse(ctx, userID, id)
	return s.reply("Reparse", parsed, err)
}

func (s *ReceiptService) ConnectSheet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("ConnectSheet", nil, err)
	}
	req, err := decode[connectSheetRequest](in)
	if err != nil {
		return s.reply("ConnectSheet", nil, err)
	}
	conn, err := s.receipts.ConnectSheet(ctx, userID, entity.SheetConnection{
		SheetID:      req.SheetID,
		SheetName:    req.SheetName,
		SheetURL:     req.SheetURL,
		TemplateType: req.TemplateType,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
	})
	return s.reply("ConnectSheet", conn, err)
}

func (s *ReceiptService) SyncToSheet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("SyncToSheet", nil, err)
	}
	req, err := decode[syncRequest](in)
	if err != nil {
		return s.reply("SyncToSheet", nil, err)
	}
	id, err := parseID(req.ReceiptID)
	if err != nil {
		return nil, err
	}
	ref, err := s.receipts.SyncToSheet(ctx, userID, id, req.SheetID)
	return s.reply("SyncToSheet", map[string]string{"range": ref}, err)
}

func (s *ReceiptService) Export(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := common.UserIDFromContext(ctx)
	if err != nil {
		return s.reply("Export", nil, err)
	}
	req, err := decode[exportRequest](in)
	if err != nil {
		return s.reply("Export", nil, err)
	}

	var (
		data        []byte
		contentType string
	)
	switch strings.ToLower(req.Format) {
	case "", "xlsx":
		req.Format = "xlsx"
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		data, err = s.exports.XLSX(ctx, userID, req.From, req.To)
	case "csv":
		req.Format = "csv"
		contentType = "text/csv"
		data, err = s.exports.CSV(ctx, userID)
	default:
		err = fmt.Errorf("%w: unknown export format %q", common.ErrInvalidInput, req.Format)
	}
	if err != nil {
		return s.reply("Export", nil, err)
	}
	return s.reply("Export", ExportReply{
		Format:      req.Format,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	}, nil)
}

func (s *ReceiptService) Classify(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[classifyRequest](in)
	if err != nil {
		return s.reply("Classify", nil, err)
	}
	if strings.TrimSpace(req.Vendor) == "" {
		return nil, common.InvalidArgumentError("vendor is required")
	}
	cat, _ := s.classifier.Classify(req.Vendor)
	return s.reply("Classify", map[string]string{"category": string(cat)}, nil)
}

var _ ReceiptsServer = (*ReceiptService)(nil)
