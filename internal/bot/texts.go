package bot

// Color is the embed accent color of every message.
const Color = 15422875

const (
	ServerErrorText = "Server Error."

	helpTitle          = "Introduction to Roo 🦘"
	balanceAllTitle    = "All Balances"
	balanceSingleTitle = "%s Balance"
	noTokensText       = "You don't have any tokens :("
	tokenListTitle     = "All Supported Tokens📖"

	unlockInfoTitle     = "Unlocking Your Wallet"
	alreadyUnlockedInfo = "Wallet already unlocked"

	unlockGeneralInfo = "Every Layer 2 wallet must be unlocked once before it can send tokens. " +
		"Unlocking registers your signing key with the network and costs a small fee, " +
		"paid in any supported token."
	unlockInstructions = "Deposit some tokens to your wallet, then do `/unlock <ticker>` to see the fee."
	alreadyUnlocked    = "Your wallet is unlocked and ready to send tokens."

	unlockQuestion  = "Unlock your wallet using %s?"
	unlockedText    = "Wallet unlocked."
	confirmText     = "Do `%s` to confirm the transaction."
	pendingText     = "Submitted as `%s`. It will appear in balances once committed."
	transactionText = "Transaction `%s` committed."
)

type helpField struct {
	name  string
	value string
}

var helpFields = []helpField{
	{"What is It? ⁉️", "Roo is a crypto tipping bot built with Layer 2 onboarding in mind. " +
		"It supports Ethereum and a range of ERC-20 tokens."},
	{"Frictionless withdrawals 💸", "Typical Ethereum token transactions can have fees upwards of $20. " +
		"Harness the power of Layer 2 and withdraw your funds for nearly 100 times less."},
	{"Grow your community 👥", "Engage your discord server with a plethora community oriented features. " +
		"Better yet, give crypto funds that your community members can actually use."},
	{"The Basics 📘", "Tip other users, deposit and withdraw ETH and ERC-20 tokens to your Layer 2 wallet. "},
	{"Layer 2 Native 👏", "Roo lives on Layer 2 Ethereum. No slow or expensive user experience."},
}

type failureText struct {
	title       string
	description string
}

var failureTexts = map[FailureKind]failureText{
	FailInvalidAmount: {"Invalid amount",
		"The amount must be a positive number, like `0.25`."},
	FailTokenNotFound: {"Token not found",
		"That token is not supported. Do `/tokens` to see all supported tokens."},
	FailInvalidTarget: {"Invalid recipient",
		"You can't send tokens to yourself."},
	FailMissingOptions: {"Missing options",
		"Missing required options: %s"},
	FailUnknownCommand: {"Unknown command",
		"Do `/help` to see what I can do."},
	FailTransactionFailed: {"Transaction failed",
		"The network rejected the transaction. Make sure your balance covers the amount and the fee, then try again."},
}

const (
	usageTitle = "Transfer tokens"
	usageText  = "Send tokens to another user of this server.\n\n" +
		"`/%[1]s <amount> <ticker> @<user>` previews the transfer and its fee.\n" +
		"`/%[1]s <amount> <ticker> @<user> confirm` sends it."
)
