package http

import (
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/contracts/machine"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/ordering"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

// MetricsPath is the path of the Prometheus handler.
const MetricsPath = "/metrics"

// AccountResponse is the body of the response for an account.
type AccountResponse struct {
	Address  solana.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports"`
	Owner    solana.PublicKey `json:"owner"`
	DataSize int              `json:"dataSize"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers the read-only routes of the state of the ledger.
func RegisterRoutes(h *HTTP, srvc ordering.Service) {
	h.RegisterHandler("GET /machines/{address}", func(w http.ResponseWriter, r *http.Request) {
		addr, ok := pathAddress(w, r, "address")
		if !ok {
			return
		}

		var m *types.Machine

		err := srvc.View(func(rd store.Readable) error {
			var err error
			m, err = machine.NewView(rd).Machine(addr)
			return err
		})

		h.respond(w, m, err)
	})

	h.RegisterHandler("GET /machines/{address}/prizes/{buyer}", func(w http.ResponseWriter, r *http.Request) {
		addr, ok := pathAddress(w, r, "address")
		if !ok {
			return
		}

		buyer, ok := pathAddress(w, r, "buyer")
		if !ok {
			return
		}

		var p *types.UnclaimedPrizes

		err := srvc.View(func(rd store.Readable) error {
			var err error
			p, err = machine.NewView(rd).Prizes(addr, buyer)
			return err
		})

		h.respond(w, p, err)
	})

	h.RegisterHandler("GET /accounts/{address}", func(w http.ResponseWriter, r *http.Request) {
		addr, ok := pathAddress(w, r, "address")
		if !ok {
			return
		}

		var res AccountResponse

		err := srvc.View(func(rd store.Readable) error {
			acc, found, err := account.NewReader(rd).Get(addr)
			if err != nil {
				return err
			}

			if !found {
				return xerrors.Errorf("%s: %w", addr, account.ErrAccountNotFound)
			}

			res = AccountResponse{
				Address:  addr,
				Lamports: acc.Lamports,
				Owner:    acc.Owner,
				DataSize: len(acc.Data),
			}

			return nil
		})

		h.respond(w, res, err)
	})
}

// RegisterMetrics registers the collectors of the process and serves them at
// MetricsPath.
func RegisterMetrics(h *HTTP) error {
	registry := prometheus.NewRegistry()

	for _, c := range jellybean.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register: %v", err)
		}
	}

	h.RegisterHandler("GET "+MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	return nil
}

func (h *HTTP) respond(w http.ResponseWriter, body interface{}, err error) {
	status := http.StatusOK

	switch {
	case err == nil:
	case xerrors.Is(err, types.UninitializedAccount), xerrors.Is(err, account.ErrAccountNotFound):
		status = http.StatusNotFound
		body = errorResponse{Error: err.Error()}
	default:
		status = http.StatusInternalServerError
		body = errorResponse{Error: err.Error()}
	}

	writeJSON(w, status, body)

	if status == http.StatusInternalServerError {
		h.logger.Err(err).Msg("failed to read state")
	}
}

func pathAddress(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	addr, err := account.ParseAddress(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: xerrors.Errorf("invalid %s: %v", name, err).Error(),
		})

		return addr, false
	}

	return addr, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
