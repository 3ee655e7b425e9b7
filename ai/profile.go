package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Venue assigns a class to the room it is taught in
type Venue struct {
	Class string `yaml:"class"`
	Venue string `yaml:"venue"`
}

// Profile holds the static department facts embedded in every system prompt
type Profile struct {
	Department  string   `yaml:"department"`
	Institution string   `yaml:"institution"`
	Venues      []Venue  `yaml:"venues"`
	Staff       []string `yaml:"staff"`
	Guidelines  []string `yaml:"guidelines"`
}

// DefaultProfile returns the department identity and guidelines without venue or staff facts
func DefaultProfile() Profile {
	return Profile{
		Department:  "Department of Computer Science",
		Institution: "Kaduna Polytechnic",
		Guidelines: []string{
			"Always be helpful, professional, and friendly",
			"Provide accurate information based on the FAQ data when available",
			"If you don't have specific information, acknowledge this and suggest contacting the department directly",
			"Focus on Computer Science department-related topics",
			"Be encouraging and supportive to students",
			"Keep responses concise but informative",
			"Use a warm, welcoming tone appropriate for an educational institution",
		},
	}
}

// LoadProfile reads a YAML profile; fields left out keep their DefaultProfile values
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read department profile: %w", err)
	}

	var fromFile Profile
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return profile, fmt.Errorf("parse department profile %s: %w", path, err)
	}

	if fromFile.Department != "" {
		profile.Department = fromFile.Department
	}
	if fromFile.Institution != "" {
		profile.Institution = fromFile.Institution
	}
	if len(fromFile.Guidelines) > 0 {
		profile.Guidelines = fromFile.Guidelines
	}
	profile.Venues = fromFile.Venues
	profile.Staff = fromFile.Staff

	return profile, nil
}
