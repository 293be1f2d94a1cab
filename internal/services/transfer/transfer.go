// Package transfer sends pearls between users by username.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/shopspring/decimal"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrAmountOutOfRange  = errors.New("transfer amount outside allowed range")
)

type Request struct {
	FromUserID  uint64
	ToUsername  string
	Amount      decimal.Decimal
	Description string
}

type Result struct {
	CorrelationID   string
	SenderTxnID     string
	ReceiverTxnID   string
	CommissionTxnID string
	Amount          decimal.Decimal
	Commission      decimal.Decimal
	NewBalance      decimal.Decimal
	Recipient       Recipient
}

// Recipient is what a sender may learn about another user.
type Recipient struct {
	UserID      uint64
	Username    string
	DisplayName string
}

type Deps struct {
	Users    users.Users
	Wallet   *wallet.Service
	Notifier notify.Notifier
	Policy   config.TransferPolicy
}

type Service struct {
	users    users.Users
	wallet   *wallet.Service
	notifier notify.Notifier
	policy   config.TransferPolicy
	log      *slog.Logger
}

func New(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}

	return &Service{
		users:    d.Users,
		wallet:   d.Wallet,
		notifier: d.Notifier,
		policy:   d.Policy,
		log:      logging.Component("transfer"),
	}
}

// Commission is amount times the policy rate, rounded half away from zero
// to cents.
func (s *Service) Commission(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.policy.CommissionRate).Round(2)
}

func (s *Service) TransferPearls(ctx context.Context, req Request) (Result, error) {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return Result{}, wallet.ErrInvalidAmount
	}

	if req.Amount.LessThan(s.policy.MinAmount) || req.Amount.GreaterThan(s.policy.MaxAmount) {
		return Result{}, fmt.Errorf("%w: %s not in [%s, %s]", ErrAmountOutOfRange,
			req.Amount.StringFixed(2), s.policy.MinAmount.StringFixed(2), s.policy.MaxAmount.StringFixed(2))
	}

	to, err := s.resolve(ctx, req.ToUsername)
	if err != nil {
		return Result{}, err
	}

	if to.UserID == req.FromUserID || to.UserID == s.policy.PlatformUserID {
		return Result{}, ErrRecipientNotFound
	}

	err = s.wallet.Open(ctx, to.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("open recipient wallet: %w", err)
	}

	commission := s.Commission(req.Amount)

	res, err := s.wallet.Transfer(ctx, wallet.TransferRequest{
		FromUserID:  req.FromUserID,
		ToUserID:    to.UserID,
		Amount:      req.Amount,
		Commission:  commission,
		Description: req.Description,
	})
	if errors.Is(err, wallet.ErrReceiverUnavailable) {
		s.log.InfoContext(ctx, "transfer to unavailable wallet", "from_user_id", req.FromUserID, "to_user_id", to.UserID, "error", err)
		return Result{}, ErrRecipientNotFound
	}

	if err != nil {
		return Result{}, err
	}

	sender, err := s.users.GetByID(ctx, req.FromUserID)
	if err != nil {
		s.log.WarnContext(ctx, "sender lookup for notification", "user_id", req.FromUserID, "error", err)
	}

	err = s.notifier.SendTransferReceived(ctx, notify.TransferReceived{
		UserID:        to.UserID,
		FromUsername:  sender.Username,
		Amount:        req.Amount,
		CorrelationID: res.CorrelationID,
	})
	if err != nil {
		s.log.WarnContext(ctx, "transfer notice not sent", "correlation_id", res.CorrelationID, "error", err)
	}

	return Result{
		CorrelationID:   res.CorrelationID,
		SenderTxnID:     res.SenderTxnID,
		ReceiverTxnID:   res.ReceiverTxnID,
		CommissionTxnID: res.CommissionTxnID,
		Amount:          req.Amount,
		Commission:      commission,
		NewBalance:      res.SenderBalance,
		Recipient:       to,
	}, nil
}

// VerifyUsername lets a sender confirm who they are about to pay.
func (s *Service) VerifyUsername(ctx context.Context, username string) (Recipient, error) {
	r, err := s.resolve(ctx, username)
	if err != nil {
		return Recipient{}, err
	}

	if r.UserID == s.policy.PlatformUserID {
		return Recipient{}, ErrRecipientNotFound
	}

	return r, nil
}

func (s *Service) resolve(ctx context.Context, username string) (Recipient, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return Recipient{}, ErrRecipientNotFound
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, users.ErrUserNotFound) {
		return Recipient{}, ErrRecipientNotFound
	}

	if err != nil {
		return Recipient{}, fmt.Errorf("resolve recipient: %w", err)
	}

	return Recipient{UserID: u.ID, Username: u.Username, DisplayName: u.DisplayName}, nil
}
