package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"socialscope/pkg/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram sessions",
	Long: `Manage the Instagram web sessions used by the authenticated lookup path.

Sessions are stored in the system keychain when available, otherwise in
an encrypted file under the user config directory. A session consists of
the sessionid and csrftoken cookies from a logged-in instagram.com
browser tab.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an Instagram session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := session.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize session storage: %w", err)
		}

		reader := bufio.NewReader(os.Stdin)

		var username string
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Instagram username: ")
			input, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			username = strings.TrimSpace(input)
		}
		if username == "" {
			return fmt.Errorf("username is required")
		}

		if existing, _ := manager.Retrieve(username); existing != nil {
			fmt.Printf("A session for %q already exists. Replace it? (y/N): ", username)
			answer, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				return nil
			}
		}

		fmt.Println("Paste the cookie values from a logged-in instagram.com tab")
		fmt.Println("(DevTools > Application > Cookies). Input is hidden.")

		fmt.Print("sessionid: ")
		sessionID, err := readSecret(reader)
		if err != nil {
			return err
		}
		fmt.Print("csrftoken: ")
		csrfToken, err := readSecret(reader)
		if err != nil {
			return err
		}

		if err := manager.Store(&session.Session{
			Username:  username,
			SessionID: sessionID,
			CSRFToken: csrfToken,
		}); err != nil {
			return err
		}

		fmt.Printf("Session stored for %q.\n", username)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := session.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize session storage: %w", err)
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Session removed for %q.\n", args[0])
		return nil
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := session.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize session storage: %w", err)
		}

		sessions, err := manager.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions. Run 'socialscope auth login' to add one.")
			return nil
		}

		for _, s := range sessions {
			masked := session.Sanitize(s)
			fmt.Printf("%-20s sessionid=%s  stored %s\n",
				masked.Username, masked.SessionID,
				masked.LastModified.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
}

// readSecret reads without echo on a terminal and falls back to plain
// line input when stdin is a pipe.
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
