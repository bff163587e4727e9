package domain

import "github.com/punchamoorthee/fundledger/internal/apperr"

var (
	ErrDescriptionTooLong    = apperr.New(apperr.KindValidation, "description_too_long", "campaign description is too long")
	ErrInvalidGoalAmount     = apperr.New(apperr.KindValidation, "invalid_goal_amount", "invalid goal amount")
	ErrInvalidEndDate        = apperr.New(apperr.KindValidation, "invalid_end_date", "campaign end date is required")
	ErrInvalidDonationAmount = apperr.New(apperr.KindValidation, "invalid_donation_amount", "invalid donation amount")
	ErrInvalidAmount         = apperr.New(apperr.KindValidation, "invalid_amount", "amount must be positive")
	ErrSelfTransfer          = apperr.New(apperr.KindValidation, "self_transfer", "cannot transfer to self")

	ErrCampaignEnded           = apperr.New(apperr.KindState, "campaign_ended", "the campaign has already ended")
	ErrCampaignNotActive       = apperr.New(apperr.KindState, "campaign_not_active", "the campaign is no longer accepting donations")
	ErrCampaignNotEnded        = apperr.New(apperr.KindState, "campaign_not_ended", "the campaign cannot be ended before its end date")
	ErrCampaignAlreadyResolved = apperr.New(apperr.KindState, "campaign_already_resolved", "the campaign is already funded or failed")
	ErrCampaignNotFunded       = apperr.New(apperr.KindState, "campaign_not_funded", "the campaign has not reached its goal")
	ErrCampaignNotFailed       = apperr.New(apperr.KindState, "campaign_not_failed", "the campaign has not failed")

	ErrAlreadyDonated = apperr.New(apperr.KindDuplicate, "already_donated", "already donated to this campaign")
	ErrRecordExists   = apperr.New(apperr.KindDuplicate, "donation_record_exists", "donation record already exists for this donor")

	ErrNoFundsAvailable = apperr.New(apperr.KindExhaustion, "no_funds_available", "no funds available for withdrawal or refund")
	ErrWithdrawTooSmall = apperr.New(apperr.KindExhaustion, "withdraw_amount_too_small", "withdrawal amount is too small")

	ErrOverflow  = apperr.New(apperr.KindArithmetic, "overflow", "arithmetic overflow")
	ErrUnderflow = apperr.New(apperr.KindArithmetic, "underflow", "arithmetic underflow")

	ErrCampaignNotFound = apperr.New(apperr.KindNotFound, "campaign_not_found", "campaign not found")
	ErrAccountNotFound  = apperr.New(apperr.KindNotFound, "account_not_found", "account not found")
	ErrRecordNotFound   = apperr.New(apperr.KindNotFound, "donation_record_not_found", "donation record not found")

	ErrInsufficientFunds = apperr.New(apperr.KindExhaustion, "insufficient_funds", "insufficient funds")
	ErrCustodyAccount    = apperr.New(apperr.KindState, "custody_account", "custody balances move only through campaign settlement")
	ErrUnauthorized      = apperr.New(apperr.KindUnauthorized, "unauthorized", "caller is not permitted to perform this operation")
)
