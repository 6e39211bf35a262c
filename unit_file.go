package servicer

import (
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
)

// GeneratedHeader is the first line of every generated unit file
const GeneratedHeader = "# This file was generated by " + ToolName + ". Do not edit unless you know what you are doing."

// RenderUnit generates the unit file content for d
func RenderUnit(d ServiceDescriptor) string {
	var unit strings.Builder

	unit.WriteString(GeneratedHeader + "\n")

	// [Unit] section
	unit.WriteString("[Unit]\n")
	unit.WriteString(descriptionLine(d.Name) + "\n")
	unit.WriteString("After=network.target\n")
	unit.WriteString("\n")

	// [Service] section
	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	unit.WriteString(fmt.Sprintf("User=%s\n", d.User))
	unit.WriteString(fmt.Sprintf("WorkingDirectory=%s\n", d.WorkingDirectory))
	unit.WriteString(fmt.Sprintf("ExecStart=%s\n", d.ExecLine()))
	if d.Restart == RestartAlways {
		unit.WriteString("Restart=always\n")
	}
	for _, env := range d.Environment {
		unit.WriteString(fmt.Sprintf("Environment=%s\n", env.Directive()))
	}

	unit.WriteString("\n")
	unit.WriteString("[Install]\n")
	unit.WriteString("WantedBy=multi-user.target\n")

	return unit.String()
}

func descriptionLine(short string) string {
	return fmt.Sprintf("Description=%s: %s", ToolName, short)
}

// editTemplate is offered when editing a unit that does not exist yet
const editTemplate = GeneratedHeader + `
[Unit]
Description=` + ToolName + `: %s
After=network.target

[Service]
Type=simple
User=%s
WorkingDirectory=
ExecStart=
# ExecReload=
Restart=always

[Install]
WantedBy=multi-user.target
`

// writeUnitFile atomically replaces path with content
func writeUnitFile(path string, content []byte) error {
	return renameio.WriteFile(path, content, FileMode)
}
