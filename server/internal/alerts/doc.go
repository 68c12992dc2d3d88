// Package alerts tracks KPI alerts across workspaces. Rules from pkg/rules are
// evaluated against every received report; an alert fires once per rule and
// workspace, resolves when its condition clears, and is announced to Teams,
// Slack or generic HTTP webhooks.
package alerts
