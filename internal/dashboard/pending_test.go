package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingAction_Attrs(t *testing.T) {
	assert.Equal(t, `data-pending-label="Deleting..."`, string(DeleteAction().Attrs()))
	assert.Equal(t, `data-pending-label="Starting..." data-submit-delay-ms="500"`,
		string(BackupAction(DefaultBackupSubmitDelay).Attrs()))
	assert.Equal(t, `data-pending-label="&lt;x&gt;"`, string(PendingAction{Label: "<x>"}.Attrs()))
	assert.Equal(t, 250*time.Millisecond, BackupAction(250*time.Millisecond).SubmitDelay)
}
