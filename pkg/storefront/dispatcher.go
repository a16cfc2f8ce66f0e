package storefront

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// dispatch sends the session's pending mutations to the provider one at a
// time, oldest first, until the queue is empty. Exactly one dispatcher runs
// per session; ApplyCartMutation starts it.
func (s *service) dispatch(ctx context.Context, sessionID string, st *sessionState) {
	defer s.doneWork()
	defer s.release(sessionID, st)

	for {
		st.mu.Lock()
		sess, err := s.loadSession(ctx, sessionID)
		if err != nil {
			st.dispatching = false
			st.mu.Unlock()
			s.logger.Error("cart dispatch stopped", "session_id", sessionID, "err", err)
			s.hooks.executeOnError(ctx, "dispatch", err)
			return
		}
		m, ok := sess.Cart.Next()
		if !ok {
			st.dispatching = false
			st.mu.Unlock()
			return
		}
		cartID := sess.CartID()
		resolved, resolvable := sess.Cart.ResolveLine(m)
		st.mu.Unlock()

		var (
			snapshot *CartSnapshot
			mutErr   error
		)
		if resolvable {
			snapshot, mutErr = s.mutate(ctx, cartID, resolved)
		} else {
			mutErr = fmt.Errorf("line %s was never confirmed", m.LineID)
		}

		if err := s.settle(ctx, sessionID, st, m, snapshot, mutErr); err != nil {
			st.mu.Lock()
			st.dispatching = false
			st.mu.Unlock()
			s.logger.Error("cart dispatch stopped", "session_id", sessionID, "err", err)
			s.hooks.executeOnError(ctx, "dispatch", err)
			return
		}
	}
}

func (s *service) mutate(ctx context.Context, cartID string, m CartMutation) (*CartSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.cart.mutate",
		trace.WithAttributes(
			attribute.String("storefront.cart.id", cartID),
			attribute.String("storefront.mutation.id", m.ID.String()),
			attribute.String("storefront.mutation.kind", string(m.Kind)),
		),
	)
	defer span.End()

	snapshot, err := s.provider.Mutate(ctx, cartID, m)
	if err == nil && snapshot == nil {
		err = fmt.Errorf("provider returned no cart")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return snapshot, nil
}

// settle records the provider's answer to m in the session overlay. A
// confirmed snapshot is stamped with m's id so reconciliation drops exactly
// that mutation; a failure drops m without retry.
func (s *service) settle(ctx context.Context, sessionID string, st *sessionState, m CartMutation, snapshot *CartSnapshot, mutErr error) error {
	st.mu.Lock()
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if mutErr != nil {
		sess.Cart = sess.Cart.Reject(m.ID)
	} else {
		snapshot = snapshot.Clone()
		if !snapshot.Acknowledges(m.ID) {
			snapshot.Acknowledged = append(snapshot.Acknowledged, m.ID)
		}
		sess.Cart = sess.Cart.Reconcile(snapshot)
	}
	sess.UpdatedAt = time.Now().UTC()
	err = s.carts.Save(ctx, sess)
	st.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}

	if mutErr != nil {
		merr := &MutationError{MutationID: m.ID, Kind: m.Kind, Err: mutErr}
		s.logger.Warn("cart mutation rejected",
			"session_id", sessionID,
			"mutation_id", m.ID,
			"kind", m.Kind,
			"err", mutErr,
		)
		s.hooks.executeOnMutationRejected(ctx, sessionID, merr)
		return nil
	}
	s.logger.Debug("cart mutation confirmed",
		"session_id", sessionID,
		"mutation_id", m.ID,
		"cart_id", snapshot.ID,
		"pending", len(sess.Cart.Pending),
	)
	s.hooks.executeOnMutationConfirmed(ctx, sessionID, m, snapshot)
	return nil
}
