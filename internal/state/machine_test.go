package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

func TestValidateTransition_HappyChain(t *testing.T) {
	a := ApplicationState{AppID: "nginx", InstallStatus: InstallNotInstalled, RunStatus: RunStopped}

	steps := []Delta{
		{InstallStatus: InstallPtr(InstallInstalling)},
		{InstallStatus: InstallPtr(InstallInstalled)},
		{RunStatus: RunPtr(RunLaunching)},
		{RunStatus: RunPtr(RunRunning)},
		{RunStatus: RunPtr(RunStopping)},
		{RunStatus: RunPtr(RunStopped)},
	}
	for _, d := range steps {
		require.NoError(t, validateTransition(a, d))
		a = apply(a, d)
	}
	require.Equal(t, InstallInstalled, a.InstallStatus)
	require.Equal(t, RunStopped, a.RunStatus)
}

func TestValidateTransition_NoSkippingToRunning(t *testing.T) {
	a := ApplicationState{AppID: "nginx", InstallStatus: InstallNotInstalled, RunStatus: RunStopped}

	// Straight to running is not a legal step from stopped.
	err := validateTransition(a, Delta{RunStatus: RunPtr(RunRunning)})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryState))

	// Launching requires the install chain to have reached installed.
	err = validateTransition(a, Delta{RunStatus: RunPtr(RunLaunching)})
	require.Error(t, err)

	// Installing cannot jump directly to launching either.
	a.InstallStatus = InstallInstalling
	err = validateTransition(a, Delta{RunStatus: RunPtr(RunLaunching)})
	require.Error(t, err)
}

func TestValidateTransition_ErrorAlwaysReachable(t *testing.T) {
	for _, from := range []RunStatus{RunStopped, RunLaunching, RunRunning, RunStopping} {
		a := ApplicationState{AppID: "a", InstallStatus: InstallInstalled, RunStatus: from}
		require.NoError(t, validateTransition(a, Delta{RunStatus: RunPtr(RunError)}), "from %s", from)
	}
	for _, from := range []InstallStatus{InstallNotInstalled, InstallInstalling, InstallInstalled} {
		a := ApplicationState{AppID: "a", InstallStatus: from, RunStatus: RunStopped}
		require.NoError(t, validateTransition(a, Delta{InstallStatus: InstallPtr(InstallError)}), "from %s", from)
	}
}

func TestValidateTransition_ErrorRecoversOnlyForward(t *testing.T) {
	a := ApplicationState{AppID: "a", InstallStatus: InstallError, RunStatus: RunStopped}
	// A fresh install job re-enters the chain at Installing.
	require.NoError(t, validateTransition(a, Delta{InstallStatus: InstallPtr(InstallInstalling)}))
	// It cannot silently declare itself installed.
	require.Error(t, validateTransition(a, Delta{InstallStatus: InstallPtr(InstallInstalled)}))
}

func TestValidateTransition_RemoveGuardsActiveProcess(t *testing.T) {
	a := ApplicationState{AppID: "a", InstallStatus: InstallInstalled, RunStatus: RunRunning}
	require.Error(t, validateTransition(a, Delta{Remove: true}))

	a.RunStatus = RunStopped
	require.NoError(t, validateTransition(a, Delta{Remove: true}))
}

func TestApply_OnlyTouchesSetFields(t *testing.T) {
	a := ApplicationState{
		AppID:         "a",
		InstallStatus: InstallInstalled,
		RunStatus:     RunRunning,
		Endpoint:      "http://127.0.0.1:8080",
		PID:           42,
	}
	next := apply(a, Delta{RunStatus: RunPtr(RunStopping)})
	require.Equal(t, RunStopping, next.RunStatus)
	require.Equal(t, InstallInstalled, next.InstallStatus)
	require.Equal(t, "http://127.0.0.1:8080", next.Endpoint)
	require.Equal(t, 42, next.PID)
}
