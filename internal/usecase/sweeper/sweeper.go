package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Sweeper advances windowed proposals through their lifecycle: draft to
// active once the window opens, active to closed once it ends. Proposals
// already moved by an operator (closed or approved) are left alone.
//
// Voting checks the stored status, so a window that opened between sweeps
// only becomes votable on the next run; the schedule interval bounds that
// staleness. A closed window is enforced immediately either way, since
// casting also checks the end bound against the clock.
type Sweeper struct {
	ledger domain.Ledger
	log    zerolog.Logger
}

func New(ledger domain.Ledger, log zerolog.Logger) *Sweeper {
	return &Sweeper{ledger: ledger, log: log}
}

// Run performs one sweep at the current time.
func (s *Sweeper) Run(ctx context.Context) error {
	return s.runAt(ctx, time.Now().UTC())
}

func (s *Sweeper) runAt(ctx context.Context, now time.Time) error {
	var opened, closed int
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		opened, closed = 0, 0
		for _, status := range []domain.ProposalStatus{domain.ProposalStatusDraft, domain.ProposalStatusActive} {
			proposals, err := tx.Proposals(ctx, domain.ProposalFilter{Status: status})
			if err != nil {
				return err
			}
			for _, proposal := range proposals {
				next := proposal.StatusForWindow(now)
				if next == proposal.Status {
					continue
				}
				locked, err := tx.ProposalForUpdate(ctx, proposal.ID)
				if err != nil {
					return err
				}
				if locked.Status != status {
					continue
				}
				locked.Status = next
				locked.UpdatedAt = now
				if err := tx.UpdateProposal(ctx, locked); err != nil {
					return err
				}
				switch next {
				case domain.ProposalStatusActive:
					opened++
				case domain.ProposalStatusClosed:
					closed++
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if opened > 0 || closed > 0 {
		s.log.Info().Int("opened", opened).Int("closed", closed).Msg("proposal windows swept")
	}
	return nil
}
