// Package shipper sends computed reports to trainingpulse-server as JSON
// (POST <server_endpoint>/api/v1/reports).
//
// Shipper.Ship() is non-blocking: reports are placed in an in-memory channel
// of buffer_size entries. When the buffer is full the oldest report is evicted
// so the latest state always reaches the server.
//
// Shipper.Run() drains the buffer, retrying with truncated exponential backoff
// (1s→60s, ±25% jitter) while the server is unreachable or answers 5xx.
// 400, 401 and 403 responses discard the report immediately.
//
// The post field is injectable for testing.
package shipper
