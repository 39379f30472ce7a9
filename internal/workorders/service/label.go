package service

import (
	"context"
	"fmt"

	"production_backend/internal/access"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const labelSize = 256

// Label is a rendered traveler label.
type Label struct {
	Reference string
	PNG       []byte
}

// TravelerLabel renders a QR code PNG that encodes the work order reference
// and id, printed and attached to the goods on the shop floor.
func (s *Service) TravelerLabel(ctx context.Context, actor access.Actor, id uuid.UUID) (Label, error) {
	wo, err := s.load(ctx, actor, id, "workorders.TravelerLabel")
	if err != nil {
		return Label{}, err
	}
	png, err := qrcode.Encode(labelContent(wo.Reference, wo.ID), qrcode.Medium, labelSize)
	if err != nil {
		return Label{}, fmt.Errorf("failed to render label: %w", err)
	}
	return Label{Reference: wo.Reference, PNG: png}, nil
}

func labelContent(reference string, id uuid.UUID) string {
	return reference + "|" + id.String()
}
