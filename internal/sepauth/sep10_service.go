package sepauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/txnbuild"
)

// AuthTimeout bounds the validity window of an issued challenge.
const AuthTimeout = 300 * time.Second

const horizonRetryAttempts = 3

var (
	// ErrInvalidChallenge covers structural challenge failures: bad envelope,
	// wrong domain or network, expired timebounds, missing or consumed nonce.
	ErrInvalidChallenge = errors.New("invalid challenge")
	// ErrInsufficientWeight is returned when the client's signatures do not
	// reach the account's medium threshold.
	ErrInsufficientWeight = errors.New("signature weight below required threshold")
	// ErrHorizonUnavailable marks a chain-lookup failure the client may retry.
	ErrHorizonUnavailable = errors.New("horizon lookup failed")
)

//go:generate mockery --name=SEP10Service --case=underscore --structname=MockSEP10Service --filename=sep10_service_mock.go --inpackage
type SEP10Service interface {
	CreateChallenge(ctx context.Context, req ChallengeRequest) (*ChallengeResponse, error)
	ValidateChallenge(ctx context.Context, req ValidationRequest) (*ValidationResponse, error)
}

type sep10Service struct {
	JWTManager        *JWTManager
	Nonces            *NonceRegistry
	HorizonClient     horizonclient.ClientInterface
	NetworkPassphrase string
	SigningKeypair    *keypair.Full
	Domain            string
	nowFunc           func() time.Time
}

type ChallengeRequest struct {
	Account string `json:"account" query:"account"`
}

type ChallengeResponse struct {
	Transaction       string `json:"transaction"`
	NetworkPassphrase string `json:"network_passphrase"`
}

type ValidationRequest struct {
	Transaction string `json:"transaction" form:"transaction"`
}

type ValidationResponse struct {
	Token   string `json:"token"`
	Account string `json:"-"`
}

func NewSEP10Service(
	jwtManager *JWTManager,
	nonces *NonceRegistry,
	horizonClient horizonclient.ClientInterface,
	networkPassphrase string,
	signingPrivateKey string,
	domain string,
) (SEP10Service, error) {
	kp, err := keypair.ParseFull(signingPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing sep10 signing key: %w", err)
	}
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	return &sep10Service{
		JWTManager:        jwtManager,
		Nonces:            nonces,
		HorizonClient:     horizonClient,
		NetworkPassphrase: networkPassphrase,
		SigningKeypair:    kp,
		Domain:            domain,
		nowFunc:           time.Now,
	}, nil
}

func (s *sep10Service) CreateChallenge(ctx context.Context, req ChallengeRequest) (*ChallengeResponse, error) {
	if !strkey.IsValidEd25519PublicKey(req.Account) {
		return nil, fmt.Errorf("%w: account is not a valid ed25519 public key", ErrInvalidChallenge)
	}

	tx, err := txnbuild.BuildChallengeTx(
		s.SigningKeypair.Seed(),
		req.Account,
		s.Domain,
		s.Domain,
		s.NetworkPassphrase,
		AuthTimeout,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("building challenge transaction: %w", err)
	}

	nonce, err := challengeNonce(tx)
	if err != nil {
		return nil, fmt.Errorf("extracting challenge nonce: %w", err)
	}
	if err = s.Nonces.Add(nonce); err != nil {
		return nil, fmt.Errorf("registering challenge nonce: %w", err)
	}

	txBase64, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	return &ChallengeResponse{
		Transaction:       txBase64,
		NetworkPassphrase: s.NetworkPassphrase,
	}, nil
}

func (s *sep10Service) ValidateChallenge(ctx context.Context, req ValidationRequest) (*ValidationResponse, error) {
	if req.Transaction == "" {
		return nil, fmt.Errorf("%w: transaction is required", ErrInvalidChallenge)
	}

	tx, clientAccountID, _, _, err := txnbuild.ReadChallengeTx(
		req.Transaction,
		s.SigningKeypair.Address(),
		s.NetworkPassphrase,
		s.Domain,
		[]string{s.Domain},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: reading challenge transaction: %v", ErrInvalidChallenge, err)
	}

	nonce, err := challengeNonce(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting challenge nonce: %v", ErrInvalidChallenge, err)
	}

	if err = s.verifySignatures(ctx, req.Transaction, clientAccountID); err != nil {
		return nil, err
	}

	// Consume only after the signatures check out, so a failed attempt does
	// not burn the nonce.
	if !s.Nonces.Consume(nonce) {
		return nil, fmt.Errorf("%w: challenge nonce is unknown, expired, or already used", ErrInvalidChallenge)
	}

	now := s.nowFunc()
	token, err := s.JWTManager.GenerateToken(clientAccountID, now)
	if err != nil {
		return nil, fmt.Errorf("generating bearer token: %w", err)
	}

	return &ValidationResponse{Token: token, Account: clientAccountID}, nil
}

// verifySignatures checks the envelope's signatures against the client
// account's on-chain signer set and medium threshold. An account unknown to
// Horizon is treated as having its own master key with weight one and a
// zero threshold.
func (s *sep10Service) verifySignatures(ctx context.Context, transaction, clientAccountID string) error {
	signerSummary, threshold, err := s.fetchSigners(ctx, clientAccountID)
	if err != nil {
		return err
	}

	signers := make([]string, 0, len(signerSummary))
	for signer := range signerSummary {
		signers = append(signers, signer)
	}

	signersFound, err := txnbuild.VerifyChallengeTxSigners(
		transaction,
		s.SigningKeypair.Address(),
		s.NetworkPassphrase,
		s.Domain,
		[]string{s.Domain},
		signers...,
	)
	if err != nil {
		return fmt.Errorf("%w: verifying challenge signatures: %v", ErrInvalidChallenge, err)
	}
	if len(signersFound) == 0 {
		return fmt.Errorf("%w: transaction not signed by client", ErrInvalidChallenge)
	}

	var weight int32
	for _, signer := range signersFound {
		weight += signerSummary[signer]
	}
	if weight < threshold {
		return fmt.Errorf("%w: signers found have weight %d, threshold is %d", ErrInsufficientWeight, weight, threshold)
	}

	return nil
}

func (s *sep10Service) fetchSigners(ctx context.Context, clientAccountID string) (txnbuild.SignerSummary, int32, error) {
	var summary txnbuild.SignerSummary
	var threshold int32

	err := retry.Do(
		func() error {
			account, accountErr := s.HorizonClient.AccountDetail(horizonclient.AccountRequest{AccountID: clientAccountID})
			if accountErr != nil {
				return accountErr
			}
			summary = account.SignerSummary()
			threshold = int32(account.Thresholds.MedThreshold)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(horizonRetryAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !horizonclient.IsNotFoundError(err)
		}),
	)
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			// The account does not exist on chain; per SEP-10 only the
			// account's own master key can have signed.
			log.Ctx(ctx).Infof("account %s not found on horizon, requiring master key only", clientAccountID)
			return txnbuild.SignerSummary{clientAccountID: 1}, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrHorizonUnavailable, err)
	}

	return summary, threshold, nil
}

// challengeNonce extracts the random value carried by the challenge's first
// named-data operation.
func challengeNonce(tx *txnbuild.Transaction) (string, error) {
	ops := tx.Operations()
	if len(ops) == 0 {
		return "", fmt.Errorf("challenge has no operations")
	}
	manageData, ok := ops[0].(*txnbuild.ManageData)
	if !ok {
		return "", fmt.Errorf("first operation is not manage_data")
	}
	if len(manageData.Value) == 0 {
		return "", fmt.Errorf("first operation carries no nonce")
	}
	return string(manageData.Value), nil
}
