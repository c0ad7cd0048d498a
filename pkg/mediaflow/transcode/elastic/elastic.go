package elastic

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

// Config options for the Elastic Transcoder client
type Config struct {
	Region          string // AWS region
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	PipelineID      string // Transcoder pipeline to submit jobs to
	PresetID        string // Video preset for landscape input
	PortraitPreset  string // Video preset for portrait input
	AudioPresetID   string // FLAC audio preset for the voice track
}

// Transcoder submits and reads jobs on an AWS Elastic Transcoder pipeline.
// It implements mediaflow.Transcoder.
type Transcoder struct {
	client *elastictranscoder.Client
	config Config
}

// New creates a new Elastic Transcoder backed transcoder
func New(config Config) (mediaflow.Transcoder, error) {
	if config.PipelineID == "" {
		return nil, errors.New("pipeline id is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transcoder{
		client: elastictranscoder.NewFromConfig(awsCfg),
		config: config,
	}, nil
}

// SubmitJob creates a transcoding job with a capped input time span, one
// video output with thumbnails and one FLAC audio output.
func (t *Transcoder) SubmitJob(ctx context.Context, spec mediaflow.JobSpec) (string, error) {
	videoPreset := t.config.PresetID
	if spec.Aspect == mediaflow.AspectPortrait {
		videoPreset = t.config.PortraitPreset
	}

	input := &elastictranscoder.CreateJobInput{
		PipelineId: aws.String(t.config.PipelineID),
		Input: &types.JobInput{
			Key:         aws.String(spec.InputKey),
			FrameRate:   aws.String("auto"),
			Resolution:  aws.String("auto"),
			AspectRatio: aws.String("auto"),
			Interlaced:  aws.String("auto"),
			Container:   aws.String("auto"),
			TimeSpan: &types.TimeSpan{
				StartTime: aws.String("0"),
				Duration:  aws.String(fmt.Sprintf("%d.000", spec.MaxDuration)),
			},
		},
		Outputs: []types.CreateJobOutput{
			{
				Key:              aws.String(spec.VideoKey),
				PresetId:         aws.String(videoPreset),
				Rotate:           aws.String("auto"),
				ThumbnailPattern: aws.String(spec.ThumbnailPattern),
			},
			{
				Key:      aws.String(spec.AudioKey),
				PresetId: aws.String(t.config.AudioPresetID),
			},
		},
	}

	result, err := t.client.CreateJob(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create transcoding job: %w", err)
	}
	if result.Job == nil || result.Job.Id == nil {
		return "", errors.New("transcoder returned no job id")
	}

	return *result.Job.Id, nil
}

// ReadJob fetches the current state of a transcoding job
func (t *Transcoder) ReadJob(ctx context.Context, jobID string) (*mediaflow.JobStatus, error) {
	result, err := t.client.ReadJob(ctx, &elastictranscoder.ReadJobInput{
		Id: aws.String(jobID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transcoding job: %w", err)
	}
	if result.Job == nil {
		return nil, errors.New("transcoder returned no job")
	}

	job := result.Job
	status := &mediaflow.JobStatus{
		ID:    aws.ToString(job.Id),
		State: mediaflow.JobState(aws.ToString(job.Status)),
	}

	if job.Output != nil {
		status.Detail = aws.ToString(job.Output.StatusDetail)
		if job.Output.Duration != nil {
			status.Duration = float64(*job.Output.Duration)
		}
	}

	for _, out := range job.Outputs {
		status.Outputs = append(status.Outputs, mediaflow.JobOutputStatus{
			Status: mediaflow.JobState(aws.ToString(out.Status)),
			Detail: aws.ToString(out.StatusDetail),
		})
	}

	return status, nil
}
