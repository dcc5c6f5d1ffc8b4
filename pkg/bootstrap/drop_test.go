package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/dbinit/pkg/audit"
)

func TestDrop(t *testing.T) {
	engine := newFakeEngine()
	engine.put("inbox_connector_db", NewAppCredential("app_user", "app_password", "inbox_connector_db"))

	opts := inboxOptions()
	opts.Databases = []string{"inbox_connector_db", "tenant_9"}
	runner, out, events := newTestRunner(engine, opts)

	result, err := runner.Drop(context.Background())
	require.NoError(t, err)

	_, ok := engine.get("inbox_connector_db", "app_user")
	assert.False(t, ok)
	assert.Equal(t, []Outcome{
		{Database: "inbox_connector_db", Dropped: true},
		{Database: "tenant_9"},
	}, result.Outcomes)
	assert.Equal(t, "User app_user dropped from inbox_connector_db\nUser app_user not found on tenant_9\n", out.String())

	require.Len(t, *events, 2)
	assert.True(t, (*events)[1].(audit.UserDropEvent).Success)
}

func TestDropThenRunRecreates(t *testing.T) {
	engine := newFakeEngine()
	engine.put("m365_connector", NewAppCredential("app_user", "app_password", "m365_connector"))
	runner, _, _ := newTestRunner(engine, m365Options())

	_, err := runner.Drop(context.Background())
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)
}
