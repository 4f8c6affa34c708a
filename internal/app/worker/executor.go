package worker

import (
	"context"
	"fmt"
	"net/http"

	adhttp "github.com/ohmynofan/router-checkin-bot/internal/adapters/http"
	"github.com/ohmynofan/router-checkin-bot/internal/adapters/provider"
	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/pkg/utils"
)

const maxReasonLen = 50

// Executor issues the authenticated calls for one account against one
// provider and hands the raw answers to the provider parsers.
type Executor struct {
	apiClient *adhttp.APIClient
	prov      config.Provider
	account   config.Account
	log       *logger.ClassLogger
}

func NewExecutor(apiClient *adhttp.APIClient, prov config.Provider, account config.Account, log *logger.ClassLogger) *Executor {
	return &Executor{apiClient: apiClient, prov: prov, account: account, log: log}
}

func (e *Executor) authHeaders() map[string]string {
	return map[string]string{
		e.prov.APIUserKey: e.account.APIUser,
	}
}

// FetchBalance never fails hard: transport errors come back as an
// unsuccessful BalanceInfo.
func (e *Executor) FetchBalance(ctx context.Context) model.BalanceInfo {
	res, err := e.apiClient.Fetch(ctx, e.prov.UserInfoURL(), &adhttp.FetchOptions{
		Method:            http.MethodGet,
		AdditionalHeaders: e.authHeaders(),
	})
	status, body, err := adhttp.StatusAndBody(res, err)
	if err != nil {
		e.log.JustLog(fmt.Sprintf("balance request failed: %v", err))
		return model.FailedBalance(utils.Truncate(fmt.Sprintf("failed to get user info: %v", err), maxReasonLen))
	}

	info := provider.ParseUserInfo(status, body)
	if !info.Success {
		e.log.JustLog(fmt.Sprintf("balance not parsed (dialect %q): %s", provider.DetectDialect(body), info.Error))
	}
	return info
}

func (e *Executor) CheckIn(ctx context.Context) provider.CheckInResult {
	headers := e.authHeaders()
	headers["Content-Type"] = "application/json"
	headers["X-Requested-With"] = "XMLHttpRequest"

	res, err := e.apiClient.Fetch(ctx, e.prov.SignInURL(), &adhttp.FetchOptions{
		Method:            http.MethodPost,
		AdditionalHeaders: headers,
	})
	status, body, err := adhttp.StatusAndBody(res, err)
	if err != nil {
		e.log.JustLog(fmt.Sprintf("check-in request failed: %v", err))
		return provider.CheckInResult{OK: false, Message: utils.Truncate(fmt.Sprintf("request failed: %v", err), maxReasonLen)}
	}

	return provider.ParseCheckInResult(status, body)
}
