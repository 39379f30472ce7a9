package service

import (
	"context"
	"errors"
	"fmt"

	"production_backend/internal/access"
	"production_backend/internal/auditlog"
	"production_backend/internal/events"
	"production_backend/internal/purchasing/repository"
	"production_backend/internal/purchasing/transport"
	"production_backend/internal/workflow"
	"production_backend/platform/apperr"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Approve approves a pending purchase order. Approving an already approved
// order succeeds without changes so retries are safe.
func (s *Service) Approve(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.PurchaseOrderResponse, error) {
	if err := access.RequireAdmin(actor, "purchasing.Approve"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	po, err := s.load(ctx, actor, id, "purchasing.Approve")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	if po.Status == string(statusApproved) {
		s.log.Info("purchase order already approved", "purchaseOrderId", id)
		return s.withLines(ctx, *po)
	}
	if _, err := s.validator.CheckKind(entity, workflow.Status(po.Status), statusApproved, workflow.KindApproval); err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), po.Status, string(statusApproved))
		return transport.PurchaseOrderResponse{}, err
	}

	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     po.Status,
		To:       string(statusApproved),
		ActorID:  actor.UserID,
		Stamp:    repository.StampApproved,
		Events: []auditlog.Payload{
			auditlog.Approved{ApprovedBy: actor.UserID},
			auditlog.StatusChanged{From: po.Status, To: string(statusApproved)},
		},
	})
	if err != nil {
		// A concurrent approval won the race; report success like a retry.
		if apperr.Is(err, apperr.KindInvalidTransition) {
			if current, gerr := s.repo.GetPurchaseOrder(ctx, id); gerr == nil && current.Status == string(statusApproved) {
				return s.withLines(ctx, *current)
			}
		}
		return transport.PurchaseOrderResponse{}, err
	}
	s.publishStatusChanged(ctx, *updated, po.Status, actor.UserID)
	return s.withLines(ctx, *updated)
}

// UpdateStatus applies a standard or cancellation edge. Approval and receipt
// have their own operations.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.UpdateStatusRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.UpdateStatus"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	po, err := s.load(ctx, actor, id, "purchasing.UpdateStatus")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	from, to := workflow.Status(po.Status), workflow.Status(req.StatusCode)
	tr, err := s.validator.Check(entity, from, to)
	if err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), po.Status, req.StatusCode)
		return transport.PurchaseOrderResponse{}, err
	}

	notes := sanitize.Text(req.Notes)
	stamp := repository.StampNone
	evs := []auditlog.Payload{auditlog.StatusChanged{From: po.Status, To: req.StatusCode, Notes: notes}}
	switch {
	case tr.Kind == workflow.KindCancellation:
		stamp = repository.StampCancelled
		evs = append(evs, auditlog.Cancelled{From: po.Status, Reason: notes})
	case tr.Kind != workflow.KindStandard:
		return transport.PurchaseOrderResponse{}, apperr.InvalidTransition(fmt.Sprintf("%s edges require the dedicated operation", tr.Kind)).
			WithDetails(map[string]interface{}{"from": from, "to": to, "kind": tr.Kind})
	case to == statusSubmitted:
		stamp = repository.StampSubmitted
	}

	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     po.Status,
		To:       req.StatusCode,
		ActorID:  actor.UserID,
		Stamp:    stamp,
		Events:   evs,
	})
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	s.publishStatusChanged(ctx, *updated, po.Status, actor.UserID)
	return s.withLines(ctx, *updated)
}

// Cancel cancels a purchase order that has not been approved yet. The row is
// kept and an audit event records the reason.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.CancelRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.Cancel"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	po, err := s.load(ctx, actor, id, "purchasing.Cancel")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	if _, err := s.validator.CheckKind(entity, workflow.Status(po.Status), statusCancelled, workflow.KindCancellation); err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), po.Status, string(statusCancelled))
		return transport.PurchaseOrderResponse{}, err
	}

	reason := sanitize.Text(req.Reason)
	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     po.Status,
		To:       string(statusCancelled),
		ActorID:  actor.UserID,
		Stamp:    repository.StampCancelled,
		Events: []auditlog.Payload{
			auditlog.StatusChanged{From: po.Status, To: string(statusCancelled), Notes: reason},
			auditlog.Cancelled{From: po.Status, Reason: reason},
		},
	})
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	s.publishStatusChanged(ctx, *updated, po.Status, actor.UserID)
	return s.withLines(ctx, *updated)
}

// ReceiveItems records received quantities per line. The order becomes
// received once every line is complete, partially_received otherwise.
func (s *Service) ReceiveItems(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.ReceiveItemsRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.ReceiveItems"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	if _, err := s.load(ctx, actor, id, "purchasing.ReceiveItems"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}

	lines := make([]repository.ReceiptLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, repository.ReceiptLine{LineID: l.LineID, Quantity: l.Quantity})
	}
	var notes *string
	if n := sanitize.Text(req.Notes); n != "" {
		notes = &n
	}

	updated, from, err := s.repo.ReceiveItems(ctx, repository.ReceiveParams{
		TenantID: actor.TenantID,
		ID:       id,
		ActorID:  actor.UserID,
		Lines:    lines,
		Notes:    notes,
		Precheck: func(from string) error {
			if s.validator.IsLegal(entity, workflow.Status(from), statusReceived) {
				return nil
			}
			s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), from, string(statusReceived))
			return workflow.NewInvalidTransition(entity, workflow.Status(from), statusReceived,
				s.validator.ListLegalNext(entity, workflow.Status(from)))
		},
		Decide: func(from string, allReceived bool) (string, error) {
			return s.receiptStatus(from, allReceived)
		},
	})
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderReceived{
		BaseEvent:       events.NewBaseEvent(),
		PurchaseOrderID: updated.ID,
		TenantID:        updated.TenantID,
		ActorID:         actor.UserID,
		Number:          updated.Number,
		FullyReceived:   updated.Status == string(statusReceived),
	})
	if updated.Status != from {
		s.publishStatusChanged(ctx, *updated, from, actor.UserID)
	}
	return s.withLines(ctx, *updated)
}

// receiptStatus picks the status after a receipt.
func (s *Service) receiptStatus(from string, allReceived bool) (string, error) {
	to := statusPartiallyReceived
	if allReceived {
		to = statusReceived
	}
	if string(to) == from {
		return from, nil
	}
	if _, err := s.validator.CheckKind(entity, workflow.Status(from), to, workflow.KindReceipt); err != nil {
		return "", err
	}
	return string(to), nil
}

// AddLine adds a line to an editable purchase order.
func (s *Service) AddLine(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.LineRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.AddLine"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	po, err := s.load(ctx, actor, id, "purchasing.AddLine")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	line, err := s.buildLine(ctx, actor, *po, req)
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	updated, err := s.repo.AddLine(ctx, s.edit(actor, id), line)
	return s.afterEdit(ctx, updated, err, "purchasing.AddLine")
}

// UpdateLine changes a line's quantity and, optionally, its unit cost.
func (s *Service) UpdateLine(ctx context.Context, actor access.Actor, id, lineID uuid.UUID, req transport.UpdateLineRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.UpdateLine"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	po, err := s.load(ctx, actor, id, "purchasing.UpdateLine")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	lines, err := s.repo.ListLines(ctx, po.TenantID, po.ID)
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	var current *repository.Line
	for i := range lines {
		if lines[i].ID == lineID {
			current = &lines[i]
			break
		}
	}
	if current == nil {
		return transport.PurchaseOrderResponse{}, apperr.NotFound("purchase order line not found")
	}
	unitCost := current.UnitCostCents
	if req.UnitCostCents != nil {
		unitCost = *req.UnitCostCents
	}
	updated, err := s.repo.UpdateLine(ctx, s.edit(actor, id), lineID, req.Quantity, unitCost)
	return s.afterEdit(ctx, updated, err, "purchasing.UpdateLine")
}

// RemoveLine deletes a line from an editable purchase order.
func (s *Service) RemoveLine(ctx context.Context, actor access.Actor, id, lineID uuid.UUID) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.RemoveLine"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	if _, err := s.load(ctx, actor, id, "purchasing.RemoveLine"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	updated, err := s.repo.RemoveLine(ctx, s.edit(actor, id), lineID)
	return s.afterEdit(ctx, updated, err, "purchasing.RemoveLine")
}

func (s *Service) edit(actor access.Actor, id uuid.UUID) repository.LineEdit {
	return repository.LineEdit{TenantID: actor.TenantID, PurchaseOrderID: id, ActorID: actor.UserID}
}

func (s *Service) afterEdit(ctx context.Context, po *repository.PurchaseOrder, err error, op string) (transport.PurchaseOrderResponse, error) {
	if errors.Is(err, repository.ErrNotEditable) {
		return transport.PurchaseOrderResponse{}, apperr.InvalidState("lines can only change while the purchase order is draft or pending approval").WithOp(op)
	}
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	return s.withLines(ctx, *po)
}
