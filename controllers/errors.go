package controllers

import "errors"

var (
	ErrTableTaken     = errors.New("table is already occupied by another waiter")
	ErrNotTableOwner  = errors.New("table is not assigned to you")
	ErrInvalidTableID = errors.New("invalid table id")
	ErrInvalidItemID  = errors.New("invalid item id")
)
