package raffle

import "github.com/gagliardetto/solana-go"

// Instruction names as they appear in the program IDL.
const (
	InitializeInstructionName    = "initialize"
	AddCollectionInstructionName = "addCollection"
	CreateRaffleInstructionName  = "createRaffle"
	BuyTicketsInstructionName    = "buyTickets"
	RevealWinnerInstructionName  = "revealWinner"
	ClaimRewardInstructionName   = "claimReward"
	WithdrawNftInstructionName   = "withdrawNft"
)

// Account type names as they appear in the program IDL.
const (
	GlobalPoolAccountName     = "GlobalPool"
	CollectionPoolAccountName = "CollectionPool"
	RafflePoolAccountName     = "RafflePool"
)

const (
	anchorInstructionNamespace = "global:"
	anchorAccountNamespace     = "account:"
	anchorDiscriminatorLength  = 8
	anchorCustomErrorBase      = 6000
)

// Seeds
const (
	GlobalAuthoritySeed = "global-authority"
	CollectionPoolSeed  = "collection-pool"
	// RandomSeed is only used inside the program when drawing a winner.
	RandomSeed = "random-seed"

	MaxSeedLength = 32
)

// Account layouts
const (
	PublicKeyLength = 32
	MaxEntrants     = 2000
	MaxCollections  = 400

	GlobalPoolSize     = anchorDiscriminatorLength + PublicKeyLength
	CollectionPoolSize = anchorDiscriminatorLength + 8 + PublicKeyLength*MaxCollections
	RafflePoolSize     = anchorDiscriminatorLength + 2*PublicKeyLength + 8*8 + PublicKeyLength + PublicKeyLength*MaxEntrants

	// RaffleNftMintOffset is the byte offset of the item mint inside a RafflePool account.
	RaffleNftMintOffset = anchorDiscriminatorLength + PublicKeyLength
)

// Raffle address probing walks seed lengths from RaffleSeedMaxLength down to RaffleSeedMinLength.
const (
	RaffleSeedMaxLength = 10
	RaffleSeedMinLength = 1
)

// Economics enforced by the program, mirrored here for reporting only.
const (
	CommissionFeePercent = 5
	DaySeconds           = 60 * 60 * 24

	// LamportsDecimals is the number of decimal places between SOL and lamports.
	LamportsDecimals = 9
)

// DefaultTreasuryWallet receives the commission on every ticket purchase.
var DefaultTreasuryWallet = solana.MustPublicKeyFromBase58("Am9xhPPVCfDZFDabcGgmQ8GTMdsbqEt1qVXbyhTxybAp")

var (
	TokenMetadataProgramID   = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SystemProgramID          = solana.SystemProgramID
	RentSysvarID             = solana.SysVarRentPubkey
)
