package accountstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

// FirstChooser always picks the first account.
type FirstChooser struct{}

func (FirstChooser) ChooseAccount(ctx context.Context, accounts []twitter.Account) (*twitter.Account, error) {
	if len(accounts) == 0 {
		return nil, twitter.ErrNoValidAccounts
	}
	account := accounts[0]
	return &account, nil
}

// UsernameChooser picks the account whose username matches, ignoring case and a leading @.
type UsernameChooser string

func (u UsernameChooser) ChooseAccount(ctx context.Context, accounts []twitter.Account) (*twitter.Account, error) {
	want := strings.TrimPrefix(string(u), "@")
	for i := range accounts {
		if strings.EqualFold(accounts[i].Username, want) {
			account := accounts[i]
			return &account, nil
		}
	}
	return nil, fmt.Errorf("%w: no account named %s", twitter.ErrCancelled, want)
}

// PromptChooser lists the accounts on Out and reads the selected number from In.
// An empty answer, "q" or end of input cancels.
//
// In is read on a separate goroutine. A cancelled ctx returns at once, but that read stays
// blocked until In yields a line or is closed, so callers that keep running after a
// cancelled prompt should close In.
type PromptChooser struct {
	In  io.Reader
	Out io.Writer
}

func (p *PromptChooser) ChooseAccount(ctx context.Context, accounts []twitter.Account) (*twitter.Account, error) {
	fmt.Fprintln(p.Out, "Choose Account")
	for i, account := range accounts {
		fmt.Fprintf(p.Out, "  %d) @%s\n", i+1, account.Username)
	}
	fmt.Fprint(p.Out, "Select an account (empty to cancel): ")

	// Buffered so the reader can finish after ChooseAccount has returned.
	answers := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(p.In)
		if scanner.Scan() {
			answers <- strings.TrimSpace(scanner.Text())
			return
		}
		answers <- ""
	}()

	var answer string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case answer = <-answers:
	}

	if answer == "" || strings.EqualFold(answer, "q") {
		return nil, twitter.ErrCancelled
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(accounts) {
		return nil, fmt.Errorf("%w: invalid selection %q", twitter.ErrCancelled, answer)
	}

	account := accounts[n-1]
	return &account, nil
}
