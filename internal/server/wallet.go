package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"dfi/internal/utils"
	"dfi/internal/wallet"
	"dfi/pkg/types"
)

// handleWallet renders the wallet page. The page is gated on a verified
// identity. A ?address= query from the browser connect flow links that
// wallet to the account before rendering.
func (s *Service) handleWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	user, err := s.userRepo.User(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to fetch user for wallet page")
		s.internalServerError(w)
		return
	}

	if user == nil || !user.IsVerified {
		http.Redirect(w, r, "/verify", http.StatusSeeOther)
		return
	}

	if address := r.URL.Query().Get("address"); address != "" {
		if !wallet.ValidAddress(address) {
			http.Redirect(w, r, "/wallet?error="+url.QueryEscape("That does not look like an Ethereum address."), http.StatusSeeOther)
			return
		}
		if err := s.userRepo.UpdateWalletAddress(ctx, userID, address); err != nil {
			s.logger.WithError(err).Error("failed to link wallet address")
			s.internalServerError(w)
			return
		}
		http.Redirect(w, r, "/wallet?notice="+url.QueryEscape("Wallet linked."), http.StatusSeeOther)
		return
	}

	data := &types.WalletPageData{
		BasePageData:  types.BasePageData{Title: "Wallet"},
		Notice:        r.URL.Query().Get("notice"),
		Error:         r.URL.Query().Get("error"),
		TxHash:        r.URL.Query().Get("tx"),
		WalletAddress: utils.PtrString(user.WalletAddress),
	}

	status := s.wallet.Detect(ctx)
	data.ProviderStatus = status.String()

	if status == wallet.StatusConnected {
		chainID, err := s.wallet.ChainID(ctx)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch chain id")
			data.Error = "Unable to read the connected network."
		} else {
			data.NetworkName = wallet.NetworkName(chainID)
			if chainID != s.config.EthChainID {
				data.Error = fmt.Sprintf("Wrong network: connected to %s, expected %s.",
					wallet.NetworkName(chainID), wallet.NetworkName(s.config.EthChainID))
			}
		}

		if data.WalletAddress != "" {
			balance, err := s.wallet.BalanceOf(ctx, data.WalletAddress)
			if err != nil {
				s.logger.WithError(err).Error("failed to fetch wallet balance")
				data.Error = "Unable to read the wallet balance."
			} else {
				data.BalanceEth = wallet.FormatEth(balance)
			}
		}
	}

	if err := s.renderTemplate(w, r, "page.wallet", data); err != nil {
		s.logger.WithError(err).Error("failed to render wallet page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostWalletSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	user, err := s.userRepo.User(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch user for wallet send")
		s.internalServerError(w)
		return
	}

	if !user.IsVerified || user.WalletAddress == nil {
		http.Redirect(w, r, "/wallet?error="+url.QueryEscape("Verify your identity and link a wallet first."), http.StatusSeeOther)
		return
	}

	to := r.FormValue("to")
	if !wallet.ValidAddress(to) {
		http.Redirect(w, r, "/wallet?error="+url.QueryEscape("Enter a valid recipient address."), http.StatusSeeOther)
		return
	}

	amount, err := wallet.ParseEth(r.FormValue("amount"))
	if err != nil {
		http.Redirect(w, r, "/wallet?error="+url.QueryEscape("Enter a valid ETH amount."), http.StatusSeeOther)
		return
	}

	txHash, err := s.wallet.SendTransaction(ctx, wallet.Transaction{
		From:  *user.WalletAddress,
		To:    to,
		Value: amount,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to send transaction")
		http.Redirect(w, r, "/wallet?error="+url.QueryEscape("The transaction was not accepted."), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/wallet?tx="+url.QueryEscape(txHash), http.StatusSeeOther)
}
