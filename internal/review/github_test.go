package review

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependsOnPattern(t *testing.T) {
	body := `This change finishes the feature.

depends-on: #12
Depends-On: #345
Not a trailer: Depends-On: #999 inline
`
	matches := dependsOnPattern.FindAllStringSubmatch(body, -1)
	require.Len(t, matches, 2)
	require.Equal(t, "12", matches[0][1])
	require.Equal(t, "345", matches[1][1])
}

func TestBuildStatusComplete(t *testing.T) {
	require.True(t, BuildStatus{State: BuildPassed}.Complete())
	require.True(t, BuildStatus{State: BuildFailed}.Complete())
	require.False(t, BuildStatus{State: BuildBuilding}.Complete())
}

func TestRevisionStatusString(t *testing.T) {
	require.Equal(t, "accepted", StatusAccepted.String())
	require.Equal(t, "changes planned", StatusChangesPlanned.String())
	require.Equal(t, "needs review", StatusOther.String())
}
