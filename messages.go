package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"raffle-tui/raffle"
	"raffle-tui/session"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// startupMsg asks Update to attempt the persisted-flag reconnect
type startupMsg struct{}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// walletEnabledMsg carries the outcome of the provider's enable
type walletEnabledMsg struct {
	info session.Info
	err  error
}

// accountChangedMsg is a provider account notification
type accountChangedMsg struct {
	change session.AccountChange
}

// raffleRefreshedMsg carries the three contract reads
type raffleRefreshedMsg struct {
	view raffle.View
	err  error
	gen  int
}

// raffleSubmittedMsg carries the outcome of the enterRaffle call
type raffleSubmittedMsg struct {
	tx  raffle.Transaction
	err error
	gen int
}

// raffleConfirmedMsg reports that an entry reached the confirmation depth
type raffleConfirmedMsg struct {
	hash    common.Hash
	receipt *types.Receipt
	err     error
	gen     int
}

// toastExpireMsg drops expired notifications
type toastExpireMsg struct{}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
	err  error
}

// clearCopiedMsg clears the clipboard feedback
type clearCopiedMsg struct{}
