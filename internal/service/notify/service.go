package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
	client "github.com/mamadbah2/farmsales/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// Service pushes farm manager notifications over WhatsApp.
type Service struct {
	client    client.Client
	managerID string
	logger    *zap.Logger
}

// NewService wires a notifier addressed to managerID.
func NewService(c client.Client, managerID string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: c, managerID: managerID, logger: logger}
}

// SendOutbound sends an arbitrary text message.
func (s *Service) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", req.To, err)
	}
	return nil
}

// NotifyManager sends message to the configured manager.
func (s *Service) NotifyManager(ctx context.Context, message string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: s.managerID, Message: message})
}

// SaleCommitted is a no-op; individual sales are not pushed to the manager.
func (s *Service) SaleCommitted(context.Context, models.SaleRecord) {}

// LotDepleted tells the manager a lot has no animals left.
func (s *Service) LotDepleted(ctx context.Context, event models.LotDepleted) {
	message := fmt.Sprintf("Lote %s agotado tras la venta #%d. Pasa a historico.", event.LotCode, event.SaleID)
	if err := s.NotifyManager(ctx, message); err != nil {
		s.logger.Error("failed to notify lot depletion", zap.Int64("lot_id", event.LotID), zap.Error(err))
		return
	}
	s.logger.Info("lot depletion notified", zap.Int64("lot_id", event.LotID))
}
