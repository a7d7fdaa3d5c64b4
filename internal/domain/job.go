package domain

import "time"

// JobStatus represents the pipeline stage a city job is currently in.
// A job moves Pending -> Fetching -> Transforming -> Uploading -> Done,
// and any stage may transition to Failed.
type JobStatus string

const (
	JobPending      JobStatus = "pending"
	JobFetching     JobStatus = "fetching"
	JobTransforming JobStatus = "transforming"
	JobUploading    JobStatus = "uploading"
	JobDone         JobStatus = "done"
	JobFailed       JobStatus = "failed"
)

// CityJob is the unit of pipeline work for one configured city in one run.
// It lives only for the duration of the run; nothing is persisted.
type CityJob struct {
	CityID       string
	Status       JobStatus
	AttemptCount int
	RowCount     int
	DroppedCount int
	ObjectKey    string
	LocalPath    string
	StartedAt    time.Time
	CompletedAt  time.Time
	LastError    error
}

// NewCityJob creates a pending job for the given city.
func NewCityJob(cityID string) *CityJob {
	return &CityJob{
		CityID:    cityID,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
	}
}

// Fail moves the job to its terminal failed state and records the error.
func (j *CityJob) Fail(err error) {
	j.Status = JobFailed
	j.LastError = err
	j.CompletedAt = time.Now().UTC()
}

// Complete moves the job to its terminal done state.
func (j *CityJob) Complete() {
	j.Status = JobDone
	j.CompletedAt = time.Now().UTC()
}

// Terminal reports whether the job has reached Done or Failed.
func (j *CityJob) Terminal() bool {
	return j.Status == JobDone || j.Status == JobFailed
}
