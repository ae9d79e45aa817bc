package engine

import "log"

func logInfof(projectID, operation, format string, args ...interface{}) {
	log.Printf("[info] project_id=%s operation=%s "+format, append([]interface{}{projectID, operation}, args...)...)
}

func logWarnf(projectID, operation, format string, args ...interface{}) {
	log.Printf("[warn] project_id=%s operation=%s "+format, append([]interface{}{projectID, operation}, args...)...)
}

func logErrorf(projectID, operation, format string, args ...interface{}) {
	log.Printf("[error] project_id=%s operation=%s "+format, append([]interface{}{projectID, operation}, args...)...)
}
