package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"dfi/internal/market"
	"dfi/internal/utils"
	"dfi/pkg/types"
)

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {

	data := &types.HomePageData{
		BasePageData: types.BasePageData{Title: ""},
		Notice:       r.URL.Query().Get("notice"),
		Error:        r.URL.Query().Get("error"),
	}

	if err := s.renderTemplate(w, r, "page.home", data); err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	data := &types.ProfilePageData{
		BasePageData: types.BasePageData{Title: "Profile"},
		UserID:       userID,
		Notice:       r.URL.Query().Get("notice"),
		Error:        r.URL.Query().Get("error"),
	}

	user, err := s.userRepo.User(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to fetch user for profile page")
		s.internalServerError(w)
		return
	}

	if user != nil {
		data.UserEmail = utils.PtrString(user.Email)
		data.WelcomeName = user.DisplayName()
		data.IsVerified = user.IsVerified
		data.WalletAddress = utils.PtrString(user.WalletAddress)
		if user.VerifiedAt != nil {
			data.VerifiedAt = user.VerifiedAt.Format("January 2, 2006")
		}
	}

	if err := s.renderTemplate(w, r, "page.profile", data); err != nil {
		s.logger.WithError(err).Error("failed to render profile page")
		s.internalServerError(w)
		return
	}
}

const marketWindowDays = 30

func (s *Service) handleMarket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	coin := strings.TrimSpace(r.URL.Query().Get("coin"))
	if coin == "" {
		coin = "ethereum"
	}

	data := &types.MarketPageData{
		BasePageData: types.BasePageData{Title: "Market"},
		Coin:         coin,
	}

	points, err := s.market.MarketChart(ctx, coin, "usd", marketWindowDays)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch market chart")
		data.Error = "Market data is unavailable right now."

		if err := s.renderTemplate(w, r, "page.market", data); err != nil {
			s.logger.WithError(err).Error("failed to render market page")
			s.internalServerError(w)
		}
		return
	}

	series := make([][2]float64, 0, len(points))
	for _, p := range points {
		series = append(series, [2]float64{float64(p.Time.UnixMilli()), p.Price})
	}
	seriesJSON, err := json.Marshal(series)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode market series")
		s.internalServerError(w)
		return
	}
	data.SeriesJSON = string(seriesJSON)

	trend, err := market.Summarize(points)
	if err != nil {
		s.logger.WithError(err).Warn("not enough market data to summarize")
	} else {
		data.Summary = market.Summary(titleCase(coin), marketWindowDays, trend)
	}

	if err := s.renderTemplate(w, r, "page.market", data); err != nil {
		s.logger.WithError(err).Error("failed to render market page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, notice string) {
	v := url.Values{}
	v.Set("notice", notice)
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}

func titleCase(v string) string {
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
