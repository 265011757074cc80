package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/manifoldco/promptui"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/surajshivkumar/ConvoLens/internal/auth"
	"github.com/surajshivkumar/ConvoLens/internal/config"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys and the Google Calendar grant",
	Long: `Stores API keys and the Google Calendar grant in ~/.convolens/credentials.json.
Environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY) take precedence over stored keys.`,
}

var authGoogleCmd = &cobra.Command{
	Use:     "google",
	Aliases: []string{"calendar"},
	Short:   "Grant convolens access to create calendar events",
	Long: `Runs the Google OAuth2 consent flow for the calendar.events scope, which the
scheduling strategy needs. Reads GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or prompts for them.`,
	Args: cobra.NoArgs,
	RunE: runAuthGoogle,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:       "logout [google|openai|anthropic]",
	Short:     "Remove stored credentials (all of them when no name is given)",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"google", string(config.ProviderOpenAI), string(config.ProviderAnthropic)},
	RunE:      runAuthLogout,
}

func init() {
	authCmd.AddCommand(authGoogleCmd, authStatusCmd, authLogoutCmd)
	for _, p := range []config.ProviderType{config.ProviderOpenAI, config.ProviderAnthropic} {
		authCmd.AddCommand(newAuthKeyCmd(p))
	}
	rootCmd.AddCommand(authCmd)
}

// newAuthKeyCmd stores a verified API key for provider.
func newAuthKeyCmd(provider config.ProviderType) *cobra.Command {
	return &cobra.Command{
		Use:   string(provider),
		Short: fmt.Sprintf("Store a %s API key", provider),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.DefaultStore()
			if err != nil {
				return err
			}
			key, err := promptSecret(fmt.Sprintf("%s API key", provider))
			if err != nil {
				return err
			}

			fmt.Fprint(os.Stderr, "Verifying key... ")
			if err := verifyAPIKey(cmd.Context(), provider, key); err != nil {
				fmt.Fprintln(os.Stderr, "rejected")
				return err
			}
			fmt.Fprintln(os.Stderr, "ok")

			err = store.Update(func(c *auth.Credentials) {
				if c.APIKeys == nil {
					c.APIKeys = map[string]string{}
				}
				c.APIKeys[string(provider)] = key
			})
			if err != nil {
				return err
			}
			fmt.Printf("Stored %s key in %s\n", provider, store.Path())
			return nil
		},
	}
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	store, err := auth.DefaultStore()
	if err != nil {
		return err
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		if clientID, err = promptSecret("Google OAuth client ID"); err != nil {
			return err
		}
	}
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientSecret == "" {
		if clientSecret, err = promptSecret("Google OAuth client secret"); err != nil {
			return err
		}
	}

	grant, err := auth.AuthorizeCalendar(cmd.Context(), clientID, clientSecret, nil)
	if err != nil {
		return fmt.Errorf("calendar authorization: %w", err)
	}
	if err := store.Update(func(c *auth.Credentials) { c.Calendar = grant }); err != nil {
		return err
	}

	fmt.Println("Google Calendar connected; scheduling is enabled.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := auth.DefaultStore()
	if err != nil {
		return err
	}
	creds, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Printf("Credentials file: %s\n\n", store.Path())
	for _, p := range []config.ProviderType{config.ProviderOpenAI, config.ProviderAnthropic} {
		status := "not configured"
		switch envVar := config.APIKeyEnvVar(p); {
		case os.Getenv(envVar) != "":
			status = "configured (" + envVar + ")"
		case creds.APIKeys[string(p)] != "":
			status = "configured (stored)"
		}
		fmt.Printf("%-10s %s\n", p, status)
	}

	if g := creds.Calendar; g.Usable() {
		fmt.Printf("%-10s granted %s, token expires %s\n", "calendar",
			g.GrantedAt.Local().Format(time.DateOnly), g.Token.Expiry.Local().Format(time.DateTime))
	} else {
		fmt.Printf("%-10s not granted (scheduling disabled; run `convolens auth google`)\n", "calendar")
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := auth.DefaultStore()
	if err != nil {
		return err
	}

	err = store.Update(func(c *auth.Credentials) {
		switch {
		case len(args) == 0:
			*c = auth.Credentials{}
		case args[0] == "google":
			c.Calendar = nil
		default:
			delete(c.APIKeys, args[0])
		}
	})
	if err != nil {
		return err
	}
	fmt.Println("Credentials removed.")
	return nil
}

func promptSecret(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("required")
			}
			return nil
		},
	}
	return p.Run()
}

// verifyAPIKey makes a one-token completion. Only a 401 rejects the key;
// rate limits and overload still prove it authenticated.
func verifyAPIKey(ctx context.Context, provider config.ProviderType, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	p, err := llm.NewProvider(string(provider), config.ModelFor(provider), key)
	if err != nil {
		return err
	}
	_, err = p.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	if err == nil {
		return nil
	}

	var anthropicErr *anthropic.Error
	var openaiErr *openai.APIError
	switch {
	case errors.As(err, &anthropicErr):
		if anthropicErr.StatusCode == http.StatusUnauthorized {
			return errors.New("invalid API key")
		}
		return nil
	case errors.As(err, &openaiErr):
		if openaiErr.HTTPStatusCode == http.StatusUnauthorized {
			return errors.New("invalid API key")
		}
		return nil
	default:
		return fmt.Errorf("verifying key: %w", err)
	}
}
