package usecase

// InsightTitle is exported for testing
var InsightTitle = insightTitle

// InsightDescription is exported for testing
var InsightDescription = insightDescription

// TrialIdentifier is exported for testing
var TrialIdentifier = trialIdentifier

// BuildNotificationBlocks is exported for testing
var BuildNotificationBlocks = buildNotificationBlocks
