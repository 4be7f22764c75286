package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe"
)

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// handleNonce issues a nonce bound to the caller's session.
//
// GET /nonce
// Response: text/plain nonce
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	sess, err := s.load(r)
	if err != nil {
		s.logger.ComponentError(logging.ComponentSIWE, "Failed to load session", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	nonce, err := siwe.GenerateNonce()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.Nonce = nonce
	if err := s.save(w, r, sess); err != nil {
		s.logger.ComponentError(logging.ComponentSIWE, "Failed to save session", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "session store unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(nonce))
}

// handleVerify checks a signed message against the session nonce and signs
// the session in. Every verification failure is a 422.
//
// POST /verify
// Request body: VerifyRequest
// Response: { "ok": true } or { "message" }
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, resultBadMessage, "invalid json body")
		return
	}
	msg, err := siwe.ParseMessage(req.Message)
	if err != nil {
		s.reject(w, resultBadMessage, err.Error())
		return
	}
	sig, err := siwe.DecodeSignature(req.Signature)
	if err != nil {
		s.reject(w, resultBadSignature, err.Error())
		return
	}

	sess, err := s.load(r)
	if err != nil {
		s.cfg.Metrics.ObserveVerification(resultStoreError)
		writeMessage(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	if sess.Nonce == "" {
		s.reject(w, resultBadNonce, "Invalid nonce.")
		return
	}

	err = msg.VerifySigned(req.Message, sig, siwe.VerifyOptions{Domain: s.cfg.Domain, Nonce: sess.Nonce, Time: s.now()})
	switch {
	case errors.Is(err, siwe.ErrNonceMismatch):
		s.reject(w, resultBadNonce, "Invalid nonce.")
		return
	case errors.Is(err, siwe.ErrInvalidSignature):
		s.reject(w, resultBadSignature, err.Error())
		return
	case err != nil:
		s.reject(w, resultBadMessage, err.Error())
		return
	}

	sess.Nonce = ""
	sess.Address = msg.Address.Hex()
	sess.ChainID = msg.ChainID
	if err := s.save(w, r, sess); err != nil {
		s.logger.ComponentError(logging.ComponentSIWE, "Failed to save session", zap.Error(err))
		s.cfg.Metrics.ObserveVerification(resultStoreError)
		writeMessage(w, http.StatusInternalServerError, "session store unavailable")
		return
	}

	s.cfg.Metrics.ObserveVerification(resultOK)
	s.logger.ComponentInfo(logging.ComponentSIWE, "Signed in",
		zap.String("address", sess.Address), zap.Int64("chain_id", sess.ChainID))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) reject(w http.ResponseWriter, result, msg string) {
	s.cfg.Metrics.ObserveVerification(result)
	s.logger.ComponentDebug(logging.ComponentSIWE, "Verification rejected",
		zap.String("result", result), zap.String("reason", msg))
	writeMessage(w, http.StatusUnprocessableEntity, msg)
}

// handleMe reports the signed-in address.
//
// GET /me
// Response: { "address", "chainId" } or {}
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.load(r)
	if err != nil || sess.Address == "" {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": sess.Address, "chainId": sess.ChainID})
}

// handleLogout destroys the session.
//
// GET /logout
// Response: { "ok": true }
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		if err := s.store.Delete(r.Context(), c.Value); err != nil {
			s.logger.ComponentWarn(logging.ComponentSIWE, "Failed to delete session", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
