package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func TestWorkerUpsertArgs_AbsentFieldsAreNull(t *testing.T) {
	name := "张伟"
	args, err := workerUpsertArgs("W1", &domain.WorkerPatch{Name: &name})
	require.NoError(t, err)
	require.Len(t, args, 10)

	require.Equal(t, "W1", args[0])
	require.Equal(t, &name, args[1])
	require.Nil(t, args[2])
	require.Nil(t, args[5]) // skills
	require.Nil(t, args[8])
	require.Nil(t, args[9]) // panel
}

func TestWorkerUpsertArgs_EmptySkillsClear(t *testing.T) {
	args, err := workerUpsertArgs("W1", &domain.WorkerPatch{Skills: []string{}})
	require.NoError(t, err)
	require.Equal(t, "[]", args[5])
}

func TestWorkerUpsertArgs_Panel(t *testing.T) {
	active := false
	args, err := workerUpsertArgs("W1", &domain.WorkerPatch{
		Active: &active,
		Skills: []string{"叉车", "分拣"},
		Panel:  &domain.WorkerPanel{Color: "#ff8800"},
	})
	require.NoError(t, err)

	require.Equal(t, &active, args[8])
	require.JSONEq(t, `["叉车","分拣"]`, args[5].(string))
	require.JSONEq(t, `{"color":"#ff8800","badges":[]}`, args[9].(string))
}
