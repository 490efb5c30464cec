package models

import "fmt"

// Topic is one learning topic with the user's progress in percent.
type Topic struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
}

func (t Topic) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("topic %d has no title", t.ID)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("topic %d progress %d out of range", t.ID, t.Progress)
	}
	return nil
}

type ToolStatus string

const (
	ToolActive      ToolStatus = "active"
	ToolInactive    ToolStatus = "inactive"
	ToolMaintenance ToolStatus = "maintenance"
)

// Tool is one entry of the tools list.
type Tool struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      ToolStatus `json:"status"`
}

func (t Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool %d has no name", t.ID)
	}
	switch t.Status {
	case ToolActive, ToolInactive, ToolMaintenance:
		return nil
	default:
		return fmt.Errorf("tool %d has unknown status %q", t.ID, t.Status)
	}
}
