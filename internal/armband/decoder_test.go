package armband

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Event
		wantErr string
	}{
		{
			name:  "pose",
			input: `{"type":"pose","pose":3}`,
			want:  Event{Type: EventTypePose, Pose: 3},
		},
		{
			name:  "rest_pose",
			input: `  {"type":"pose","pose":0}` + "\r\n",
			want:  Event{Type: EventTypePose, Pose: PoseRest},
		},
		{
			name:  "imu_full",
			input: `{"type":"imu","quat":[1,0,0,0],"acc":[10,-20.5,980],"gyro":[1,2,3]}`,
			want: Event{Type: EventTypeIMU, Motion: Motion{
				Quat:  [4]float64{1, 0, 0, 0},
				Accel: [3]float64{10, -20.5, 980},
				Gyro:  [3]float64{1, 2, 3},
			}},
		},
		{
			name:  "imu_accel_only",
			input: `{"type":"imu","acc":[1,2,3]}`,
			want:  Event{Type: EventTypeIMU, Motion: Motion{Accel: [3]float64{1, 2, 3}}},
		},
		{name: "empty", input: "  ", wantErr: "empty message"},
		{name: "not_json", input: "pose=1", wantErr: "invalid event"},
		{name: "pose_without_label", input: `{"type":"pose"}`, wantErr: "without pose label"},
		{name: "short_accel", input: `{"type":"imu","acc":[1,2]}`, wantErr: "acc: expected 3 values, got 2"},
		{name: "long_quat", input: `{"type":"imu","quat":[1,2,3,4,5]}`, wantErr: "quat: expected 4 values, got 5"},
		{name: "unknown_type", input: `{"type":"emg","data":[1,2]}`, wantErr: `unknown event type "emg"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAxis(t *testing.T) {
	m := Motion{
		Quat:  [4]float64{0.1, 0.2, 0.3, 0.4},
		Accel: [3]float64{1, 2, 3},
		Gyro:  [3]float64{4, 5, 6},
	}

	tests := map[string]float64{
		"accel_x": 1, "accel_y": 2, "accel_z": 3,
		"gyro_x": 4, "gyro_y": 5, "gyro_z": 6,
		"quat_w": 0.1, "quat_x": 0.2, "quat_y": 0.3, "quat_z": 0.4,
	}
	for name, want := range tests {
		axis, err := Axis(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, axis(m), name)
	}

	_, err := Axis("accel_w")
	assert.Error(t, err)
}
