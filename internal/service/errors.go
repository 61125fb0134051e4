package service

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExpired    = errors.New("session expired")
	ErrProfileExists     = errors.New("profile already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrMissionNotFound   = errors.New("mission not found")
	ErrMissionFinalized  = errors.New("mission already completed or abandoned")
	ErrMissionInProgress = errors.New("a mission is already in progress")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidStatus     = errors.New("invalid mission status")
	ErrUnknownBadge      = errors.New("unknown badge")
)
