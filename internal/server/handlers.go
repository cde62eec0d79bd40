package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/nft"
	"github.com/Aranthus/erc-721-hyperliquid/internal/pkg/response"
	"github.com/Aranthus/erc-721-hyperliquid/internal/throughput"
)

// ContractInfo is what the mint page needs to talk to the contract.
type ContractInfo struct {
	Address common.Address  `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

// BlockView is a classified block.
type BlockView struct {
	blocks.Sample
	Class blocks.Class `json:"class"`
	Label string       `json:"label"`
}

// Analysis is the body of /api/blocks/analysis.
type Analysis struct {
	Threshold uint64              `json:"threshold"`
	Blocks    []BlockView         `json:"blocks"`
	Summary   throughput.Summary  `json:"summary"`
	Estimate  throughput.Estimate `json:"estimate"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// handleReady checks that the chain RPC answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reader == nil {
		response.OK(w, map[string]string{"status": "ok", "rpc": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.opts.Reader.BlockNumber(ctx); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "component": "rpc"})
		return
	}
	response.OK(w, map[string]string{"status": "ok", "rpc": "connected"})
}

// handleContractInfo reads the deployment record per request so a redeploy
// shows up without a restart.
func (s *Server) handleContractInfo(w http.ResponseWriter, r *http.Request) {
	info, err := nft.LoadDeploymentInfo(s.opts.DeploymentFile)
	if err != nil {
		if !errors.Is(err, nft.ErrNotDeployed) {
			s.logger.Error("failed to read deployment info", "error", err)
		}
		response.Error(w, err)
		return
	}
	response.OK(w, ContractInfo{Address: info.Address, ABI: info.ABI})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reader == nil {
		response.NotFound(w, "Block reader")
		return
	}
	ref, err := blocks.ParseRef(chi.URLParam(r, "ref"))
	if err != nil {
		response.ValidationError(w, "ref", err.Error())
		return
	}

	sample, class, err := s.opts.Classifier.FetchAndClassify(r.Context(), s.opts.Reader, ref)
	if err != nil {
		s.readFailed(w, err)
		return
	}
	s.classified.WithLabelValues(string(class)).Inc()
	response.OK(w, BlockView{Sample: sample, Class: class, Label: class.Label()})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reader == nil {
		response.NotFound(w, "Block reader")
		return
	}
	window := s.opts.Window
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxWindow {
			response.ValidationError(w, "window", "must be an integer between 1 and "+strconv.Itoa(MaxWindow))
			return
		}
		window = n
	}

	scan, err := s.opts.Classifier.ScanRecent(r.Context(), s.opts.Reader, window, nil)
	if err != nil {
		s.readFailed(w, err)
		return
	}

	views := make([]BlockView, scan.Len())
	for i, sample := range scan.Samples {
		c := scan.ClassAt(i)
		s.classified.WithLabelValues(string(c)).Inc()
		views[i] = BlockView{Sample: sample, Class: c, Label: c.Label()}
	}

	summary := throughput.Summarize(scan)
	estimate, err := throughput.Compute(summary, s.opts.SlowIntervalSec, s.opts.FastIntervalSec)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, Analysis{
		Threshold: scan.Threshold,
		Blocks:    views,
		Summary:   summary,
		Estimate:  estimate,
	})
}

func (s *Server) readFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, blocks.ErrTransientRead) {
		s.logger.Warn("block read failed", "error", err)
	}
	response.Error(w, err)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.opts.PublicDir, "index.html"))
}
