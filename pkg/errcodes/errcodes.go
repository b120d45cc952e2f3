package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	TooManyRequests     failure.ErrorCode = "TooManyRequests"
	UpstreamError       failure.ErrorCode = "UpstreamError"

	SessionTokenInvalid failure.ErrorCode = "SessionTokenInvalid" //nolint:gosec // false positive
	SessionTokenExpired failure.ErrorCode = "SessionTokenExpired" //nolint:gosec // false positive
	AdminAddressInvalid failure.ErrorCode = "AdminAddressInvalid"
	IDTokenInvalid      failure.ErrorCode = "IDTokenInvalid" //nolint:gosec // false positive
	AddressBound        failure.ErrorCode = "AddressBound"
	LoginBound          failure.ErrorCode = "LoginBound"

	InvalidAddress    failure.ErrorCode = "InvalidAddress"
	InvalidDropID     failure.ErrorCode = "InvalidDropID"
	InvalidShirtID    failure.ErrorCode = "InvalidShirtID"
	InvalidPaging     failure.ErrorCode = "InvalidPaging"
	InvalidAmount     failure.ErrorCode = "InvalidAmount"
	InvalidSupply     failure.ErrorCode = "InvalidSupply"
	InvalidAuction    failure.ErrorCode = "InvalidAuction"
	InvalidMintCount  failure.ErrorCode = "InvalidMintCount"
	InvalidBlobID     failure.ErrorCode = "InvalidBlobID"
	InvalidDigest     failure.ErrorCode = "InvalidDigest"
	InvalidClaimToken failure.ErrorCode = "InvalidClaimToken"

	DropNotFound       failure.ErrorCode = "DropNotFound"
	ShirtNotFound      failure.ErrorCode = "ShirtNotFound"
	ClaimTokenNotFound failure.ErrorCode = "ClaimTokenNotFound"
	BidNotFound        failure.ErrorCode = "BidNotFound"
	UserNotFound       failure.ErrorCode = "UserNotFound"
	BlobNotFound       failure.ErrorCode = "BlobNotFound"

	ShirtNotMinted        failure.ErrorCode = "ShirtNotMinted"
	ShirtAlreadyClaimed   failure.ErrorCode = "ShirtAlreadyClaimed"
	SupplyExhausted       failure.ErrorCode = "SupplyExhausted"
	ClaimTokenCollision   failure.ErrorCode = "ClaimTokenCollision" //nolint:gosec // false positive
	ShirtTokenExists      failure.ErrorCode = "ShirtTokenExists"
	AuctionNotConfigured  failure.ErrorCode = "AuctionNotConfigured"
	AuctionClosed         failure.ErrorCode = "AuctionClosed"
	AuctionDeadlinePassed failure.ErrorCode = "AuctionDeadlinePassed"
	BidderMismatch        failure.ErrorCode = "BidderMismatch"
	ChainTxFailed         failure.ErrorCode = "ChainTxFailed"
)
