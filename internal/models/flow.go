package models

import (
	"gorm.io/gorm"
)

// Flow node types
const (
	NodeTypeMessage = "message"
	NodeTypeButtons = "buttons"
	NodeTypeList    = "list"
)

// FlowButton is one reply button inside a buttons node.
type FlowButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FlowNode is one step of a tenant-authored flow. Exactly one shape applies
// depending on Type: message uses Text; buttons uses Text+Buttons; list uses
// Action (currently only "view_products" renders the catalog).
type FlowNode struct {
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	Buttons []FlowButton `json:"buttons,omitempty"`
	Action  string       `json:"action,omitempty"`
}

// Flow is a keyword-triggered scripted sequence of outbound nodes, authored
// by the business. Read-only to the conversation engine.
type Flow struct {
	gorm.Model
	BusinessID      uint       `gorm:"index" json:"business_id"`
	Name            string     `json:"name"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	TriggerKeywords []string   `gorm:"serializer:json" json:"trigger_keywords"`
	Nodes           []FlowNode `gorm:"serializer:json" json:"nodes"`
}
