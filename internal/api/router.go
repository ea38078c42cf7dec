package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pesaflow/pesaflow-backend/internal/api/httpx"
	"github.com/pesaflow/pesaflow-backend/internal/api/validate"
	"github.com/pesaflow/pesaflow-backend/internal/config"
	"github.com/pesaflow/pesaflow-backend/internal/metrics"
	"github.com/pesaflow/pesaflow-backend/internal/middleware"
	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
	"github.com/pesaflow/pesaflow-backend/internal/services"

	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Cfg     config.Config
	Redis   *redis.Client
	AuthMW  *middleware.AuthMiddleware
	UserSvc *services.UserService
	Ledger  *services.LedgerService
	Loans   *services.LoanService
	Limits  repo.Limits
	Bills   repo.Bills
	Notes   repo.Notifications
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(middleware.RateLimit(d.Redis, d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req services.RegisterCustomerInput
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			if err := validate.Collect(
				validate.Required("username", req.Username),
				validate.Required("email", req.Email),
				validate.Required("password", req.Password),
				validate.Required("pin", req.PIN),
				validate.Required("phone_number", req.PhoneNumber),
				validate.Required("id_number", req.IDNumber),
			); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error(), err)
				return
			}
			u, wallet, err := d.UserSvc.RegisterCustomer(r.Context(), req)
			if err != nil {
				writeSvcErr(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": u, "account": wallet})
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			u, pair, err := d.UserSvc.Login(r.Context(), req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": u, "tokens": pair})
		})

		r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			pair, err := d.UserSvc.Refresh(r.Context(), req.RefreshToken)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		// ---------- customer ----------
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				u, err := d.UserSvc.GetUser(r.Context(), uid)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, u)
			})

			r.Get("/accounts/{kind}", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				kind := models.AccountKind(chi.URLParam(r, "kind"))
				acc, err := d.UserSvc.GetAccount(r.Context(), uid, kind)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, acc)
			})

			r.Post("/accounts/savings", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				acc, err := d.UserSvc.OpenSavings(r.Context(), uid)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, acc)
			})

			r.Post("/transactions/transfer", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					Phone  string `json:"phone"`
					Amount int64  `json:"amount"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				txn, err := d.Ledger.Transfer(r.Context(), uid, req.Phone, req.Amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/savings/deposit", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				amount, ok := amountBody(w, r)
				if !ok {
					return
				}
				txn, err := d.Ledger.SavingsDeposit(r.Context(), uid, amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/savings/withdraw", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				amount, ok := amountBody(w, r)
				if !ok {
					return
				}
				txn, err := d.Ledger.SavingsWithdraw(r.Context(), uid, amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/airtime", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					Phone  string `json:"phone"`
					Amount int64  `json:"amount"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				txn, err := d.Ledger.BuyAirtime(r.Context(), uid, req.Phone, req.Amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/bills/{id}/pay", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				txn, err := d.Ledger.PayBill(r.Context(), uid, chi.URLParam(r, "id"))
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				limit, offset := pagination(r)
				txns, err := d.Ledger.ListByUser(r.Context(), uid, limit, offset)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txns)
			})

			r.Get("/transactions/{transactionID}", func(w http.ResponseWriter, r *http.Request) {
				txn, err := d.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "transactionID"))
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txn)
			})

			r.Post("/loans/request", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				amount, ok := amountBody(w, r)
				if !ok {
					return
				}
				txn, err := d.Loans.Request(r.Context(), uid, amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/loans/repay", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				amount, ok := amountBody(w, r)
				if !ok {
					return
				}
				txn, err := d.Loans.Repay(r.Context(), uid, amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Get("/loans", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				loans, err := d.Loans.ListByUser(r.Context(), uid)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, loans)
			})

			r.Get("/loans/max", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				max, err := d.Loans.MaxLoan(r.Context(), uid)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]int64{"max_loan": max})
			})

			r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				limit, offset := pagination(r)
				ns, err := d.Notes.ListByUser(r.Context(), uid, limit, offset)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, ns)
			})
		})

		// ---------- agent ----------
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth, middleware.RequireRole(models.RoleAgent))

			agentID := func(r *http.Request) (string, error) {
				uid, _ := middleware.UserID(r.Context())
				a, err := d.UserSvc.GetAgentByUser(r.Context(), uid)
				return a.ID, err
			}

			type cashReq struct {
				CustomerID string `json:"customer_id"`
				Amount     int64  `json:"amount"`
				Initial    bool   `json:"initial"`
			}

			r.Post("/agent/deposit", func(w http.ResponseWriter, r *http.Request) {
				aid, err := agentID(r)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				var req cashReq
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				var txn models.Transaction
				if req.Initial {
					txn, err = d.Ledger.InitialDeposit(r.Context(), aid, req.CustomerID, req.Amount)
				} else {
					txn, err = d.Ledger.Deposit(r.Context(), aid, req.CustomerID, req.Amount)
				}
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/agent/withdraw", func(w http.ResponseWriter, r *http.Request) {
				aid, err := agentID(r)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				var req cashReq
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				txn, err := d.Ledger.Withdraw(r.Context(), aid, req.CustomerID, req.Amount)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Get("/agent/transactions", func(w http.ResponseWriter, r *http.Request) {
				aid, err := agentID(r)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				limit, offset := pagination(r)
				txns, err := d.Ledger.ListByAgent(r.Context(), aid, limit, offset)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txns)
			})
		})

		// ---------- admin ----------
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth, middleware.RequireRole(models.RoleAdmin))

			r.Post("/admin/agents", func(w http.ResponseWriter, r *http.Request) {
				var req services.RegisterAgentInput
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				u, agent, err := d.UserSvc.RegisterAgent(r.Context(), req)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": u, "agent": agent})
			})

			r.Post("/admin/agents/{id}/float", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Amount   int64 `json:"amount"`
					Increase bool  `json:"increase"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				txn, err := d.Ledger.AdjustFloat(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Increase)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, txn)
			})

			r.Post("/admin/limits", func(w http.ResponseWriter, r *http.Request) {
				var req models.Limit
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				l, err := d.Limits.Upsert(r.Context(), req)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, l)
			})

			r.Post("/admin/user-limits", func(w http.ResponseWriter, r *http.Request) {
				var req models.UserLimit
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Type == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				l, err := d.Limits.UpsertUserLimit(r.Context(), req)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, l)
			})

			r.Post("/admin/bills", func(w http.ResponseWriter, r *http.Request) {
				var req models.Bill
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BillerName == "" || req.Amount <= 0 {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				b, err := d.Bills.Create(r.Context(), req)
				if err != nil {
					writeSvcErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, b)
			})
		})
	})

	return r
}

func amountBody(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return 0, false
	}
	return req.Amount, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// writeSvcErr maps the service error taxonomy to HTTP statuses.
func writeSvcErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrRecipientNotFound),
		errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrBillNotFound),
		errors.Is(err, services.ErrNoActiveLoan),
		errors.Is(err, repo.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrActiveLoanExists),
		errors.Is(err, services.ErrPhoneAlreadyRegistered),
		errors.Is(err, services.ErrPhoneLineCapExceeded),
		errors.Is(err, services.ErrBillAlreadyPaid),
		errors.Is(err, services.ErrAccountAlreadyFunded),
		errors.Is(err, repo.ErrDuplicate),
		errors.Is(err, repo.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientFloat),
		errors.Is(err, services.ErrSystemInsufficientFunds),
		errors.Is(err, services.ErrDailyCapExceeded),
		errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrAboveMaximum),
		errors.Is(err, services.ErrAboveTierLimit):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "rejected", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrSelfTransfer),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrAgentInactive):
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
