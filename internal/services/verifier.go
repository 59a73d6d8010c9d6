package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sippets/internal/models"

	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
)

// TransferVerifier answers whether a chain signature really moved the claimed
// $SIP. Implementations must be side-effect free; reservation of the
// signature happens in the caller's transaction.
type TransferVerifier interface {
	VerifyTransfer(ctx context.Context, signature string, expectedSender string) (*models.VerifiedTransfer, error)
}

type tonVerifierResponse struct {
	Success bool   `json:"success"`
	Sender  string `json:"sender"`
	Amount  int64  `json:"amount"`
}

// TonVerifier asks the indexer about a jetton transfer. Transport failures
// come back as retryable service errors; nothing is persisted until the
// answer arrives, so the whole operation is safe to retry.
type TonVerifier struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewTonVerifier(container *do.Injector) (*TonVerifier, error) {
	vs, err := do.InvokeNamed[map[string]string](container, "envs")
	if err != nil {
		return nil, err
	}

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(10*time.Second),
		httpclient.WithRetryCount(3),
	)

	return &TonVerifier{
		baseURL: vs["TON_INDEXER_URL"],
		apiKey:  vs["TON_INDEXER_API_KEY"],
		client:  client,
	}, nil
}

func (verifier *TonVerifier) VerifyTransfer(ctx context.Context, signature string, expectedSender string) (*models.VerifiedTransfer, error) {
	url := fmt.Sprintf("%s/v1/jetton/transfers/%s", verifier.baseURL, signature)

	headers := http.Header{}
	if verifier.apiKey != "" {
		headers.Set("Authorization", "Bearer "+verifier.apiKey)
	}

	resp, err := verifier.client.Get(url, headers)
	if err != nil {
		return nil, errorx.Wrap(fmt.Errorf("verifier unreachable: %w", err), errorx.Service)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &models.VerifiedTransfer{Signature: signature, Valid: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorx.Wrap(fmt.Errorf("verifier status %d", resp.StatusCode), errorx.Service)
	}

	var body tonVerifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if !body.Success {
		return &models.VerifiedTransfer{Signature: signature, Valid: false}, nil
	}

	if expectedSender != "" && body.Sender != expectedSender {
		return &models.VerifiedTransfer{Signature: signature, Sender: body.Sender, Amount: body.Amount, Valid: false}, nil
	}

	return &models.VerifiedTransfer{
		Signature: signature,
		Sender:    body.Sender,
		Amount:    body.Amount,
		Valid:     true,
	}, nil
}

var _ TransferVerifier = (*TonVerifier)(nil)

var ErrTransferInvalid = errors.New("transfer not found on chain or sender mismatch")
