// Package rules holds the two declarative rule tables applied to a KPI set.
//
// thresholds.go is the Threshold Classifier: each KPI has a green bound, a
// yellow bound and a polarity (higher-better or lower-better). Classify maps
// a value to green, yellow or red; unknown KPIs and absent KPI sets are gray.
//
// alerts.go is the Alert Deriver: an ordered list of AlertRule whose
// Condition is a "<kpi> <op> <number>" expression (condition.go). Derive
// evaluates the rules in list order and, when none fire, returns a single
// green "all KPIs nominal" entry.
//
// Both tables are data. New KPIs or bounds are added by editing the tables
// or overriding them from config, never by adding branches.
package rules
