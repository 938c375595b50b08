package models

// Event payloads carried through the outbox and the broker.

type CollectionRequestedEvent struct {
	UserID int64 `json:"user_id"`
}

type ChallengeEvaluationRequest struct {
	UserID int64 `json:"user_id"`
}

type PointChangedEvent struct {
	UserID int64  `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

type ChallengeCompletedEvent struct {
	UserID        int64  `json:"user_id"`
	ChallengeID   int64  `json:"challenge_id"`
	ChallengeName string `json:"challenge_name"`
	PointsAwarded int    `json:"points_awarded"`
}
