package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// AuthURL builds the implicit-grant authorization URL. The token comes back
// in the redirect fragment instead of an exchangeable code.
func AuthURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token"))
}

// ImplicitGrantHandler handles the implicit-grant callback. It serves the
// relay page that forwards the URL fragment, and the intake endpoint that
// receives the token. Implements the Handler interface for registration with
// a Router.
type ImplicitGrantHandler struct {
	state      string
	resultChan chan OAuthResult
	once       sync.Once
	tokenSeen  bool
	mu         sync.Mutex
}

// NewImplicitGrantHandler creates a handler expecting the given state token.
// The state token should be cryptographically random for CSRF protection.
func NewImplicitGrantHandler(state string) *ImplicitGrantHandler {
	return &ImplicitGrantHandler{
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ImplicitGrantHandler) Routes() []string {
	return []string{"/authenticate", "/authenticate/token"}
}

func (h *ImplicitGrantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/authenticate/token" && r.Method == http.MethodPost:
		h.handleToken(w, r)
	case r.URL.Path == "/authenticate" && r.Method == http.MethodGet:
		h.handleRelay(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleRelay serves the page the remote service redirects to. The fragment
// carrying the token is only visible to the browser, so a little script
// reposts it to the intake endpoint.
func (h *ImplicitGrantHandler) handleRelay(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, relayPage)
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	State       string `json:"state"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

func (h *ImplicitGrantHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	// Only accept one token
	h.mu.Lock()
	if h.tokenSeen {
		h.mu.Unlock()
		http.Error(w, "Token already processed", http.StatusBadRequest)
		return
	}
	h.tokenSeen = true
	h.mu.Unlock()

	var payload tokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("malformed token payload: %w", err)})
		http.Error(w, "Malformed payload", http.StatusBadRequest)
		return
	}

	if payload.State != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if payload.AccessToken == "" {
		h.Send(OAuthResult{err: fmt.Errorf("authorization failed: %s", payload.Error)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(OAuthResult{Token: &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}})
	w.WriteHeader(http.StatusNoContent)
}

// Send sends the OAuth result through the channel (only once).
func (h *ImplicitGrantHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *ImplicitGrantHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const relayPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="heading">Finishing authorization…</h1>
        <p id="detail">One moment.</p>
    </div>
    <script>
        const params = new URLSearchParams(window.location.hash.slice(1));
        const body = {
            access_token: params.get("access_token") || "",
            state: params.get("state") || "",
            expires_in: parseInt(params.get("expires_in") || "0", 10),
            error: params.get("error") || ""
        };
        fetch("/authenticate/token", {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify(body)
        }).then(resp => {
            if (resp.ok) {
                document.getElementById("heading").textContent = "✓ Authorization Successful";
                document.getElementById("detail").textContent = "You can close this window and return to the terminal.";
            } else {
                document.getElementById("heading").textContent = "✗ Authorization Failed";
                document.getElementById("detail").textContent = "Return to the terminal for details.";
            }
        });
    </script>
</body>
</html>
`
