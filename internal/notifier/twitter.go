package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

const maxTweetLength = 280

// TwitterCredentials holds the OAuth1 user-context keys for posting statuses
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Complete reports whether every credential is set
func (c TwitterCredentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// TwitterNotifier posts projects to Twitter
type TwitterNotifier struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from OAuth1 credentials.
// Each post is bounded by timeout; zero leaves only the caller's context.
func NewTwitterNotifier(creds TwitterCredentials, timeout time.Duration) (*TwitterNotifier, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return newTwitterNotifier(config.Client(oauth1.NoContext, token).Transport, timeout), nil
}

func newTwitterNotifier(transport http.RoundTripper, timeout time.Duration) *TwitterNotifier {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &TwitterNotifier{transport: transport, timeout: timeout}
}

// Notify posts one status for p
func (n *TwitterNotifier) Notify(ctx context.Context, p *project.Project) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// go-twitter takes no context, so it is bound to every request instead
	client := twitter.NewClient(&http.Client{Transport: contextTransport{ctx: ctx, base: n.transport}})

	_, _, err := client.Statuses.Update(formatTweet(p), nil)
	if err != nil {
		return fmt.Errorf("failed to post tweet for project %s: %w", p.ID, err)
	}
	return nil
}

type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// formatTweet formats a project as a tweet, shortening the title to fit the limit
func formatTweet(p *project.Project) string {
	suffix := "\n\n" + p.URL + "\n#پونیشا #فریلنسری"
	title := p.Title

	room := maxTweetLength - utf8.RuneCountInString(suffix)
	if room < 4 {
		room = 4
	}
	if utf8.RuneCountInString(title) > room {
		r := []rune(title)
		title = string(r[:room-3]) + "..."
	}

	return title + suffix
}
