package model

import "time"

const EXPORT_VERSION string = "1.0"

type ExportFile struct {
	Name       string    `json:"name"`
	Steps      []Step    `json:"nodes"`
	Links      []Link    `json:"edges"`
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
}

type ValidationRequest struct {
	Steps []Step `json:"nodes"`
	Links []Link `json:"edges"`
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}
