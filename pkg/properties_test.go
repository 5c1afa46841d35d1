package pkg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func entry(name string, caseSensitive bool, obf Obfuscator) propertyEntry {
	return propertyEntry{
		name:          name,
		caseSensitive: caseSensitive,
		config: PropertyConfig{
			Obfuscator: obf,
			ObjectMode: ModeObfuscate,
			ArrayMode:  ModeObfuscate,
		},
	}
}

func TestBuildPropertyTable_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		entries []propertyEntry
		wantErr string
	}{
		{
			"empty name",
			[]propertyEntry{entry("", true, FixedLength(3))},
			"cannot be empty",
		},
		{
			"nil obfuscator",
			[]propertyEntry{entry("a", true, nil)},
			"no obfuscator",
		},
		{
			"duplicate case-sensitive",
			[]propertyEntry{entry("a", true, FixedLength(3)), entry("a", true, FixedLength(5))},
			"registered twice",
		},
		{
			"duplicate case-insensitive",
			[]propertyEntry{entry("Token", false, FixedLength(3)), entry("TOKEN", false, FixedLength(5))},
			"registered twice",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildPropertyTable(tc.entries)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("invalid mode", func(t *testing.T) {
		e := entry("a", true, FixedLength(3))
		e.config.ObjectMode = ObfuscationMode(99)
		_, err := buildPropertyTable([]propertyEntry{e})
		require.Error(t, err)
	})
}

func TestPropertyTable_Lookup(t *testing.T) {
	exact := FixedLength(3)
	folded := FixedLength(5)
	table, err := buildPropertyTable([]propertyEntry{
		entry("password", true, exact),
		entry("Token", false, folded),
	})
	require.NoError(t, err)

	require.Nil(t, table.lookup("unknown"))
	require.Nil(t, table.lookup("PASSWORD"), "case-sensitive entries never fold")

	cfg := table.lookup("password")
	require.NotNil(t, cfg)
	require.Equal(t, exact, cfg.Obfuscator)

	for _, name := range []string{"Token", "token", "TOKEN", "tOkEn"} {
		cfg := table.lookup(name)
		require.NotNil(t, cfg, "lookup %q", name)
		require.Equal(t, folded, cfg.Obfuscator)
	}
}

func TestPropertyTable_ExactWinsOverFolded(t *testing.T) {
	exact := FixedLength(3)
	folded := FixedLength(5)
	table, err := buildPropertyTable([]propertyEntry{
		entry("token", true, exact),
		entry("token", false, folded),
	})
	require.NoError(t, err)

	require.Equal(t, exact, table.lookup("token").Obfuscator)
	require.Equal(t, folded, table.lookup("TOKEN").Obfuscator)
}

func TestPropertyConfig_Equal(t *testing.T) {
	obf := FixedLength(3)
	a := &PropertyConfig{Obfuscator: obf, ObjectMode: ModeObfuscate, ArrayMode: ModeInherit}
	b := &PropertyConfig{Obfuscator: obf, ObjectMode: ModeObfuscate, ArrayMode: ModeInherit}
	c := &PropertyConfig{Obfuscator: obf, ObjectMode: ModeExclude, ArrayMode: ModeInherit}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))

	var nilCfg *PropertyConfig
	require.True(t, nilCfg.Equal(nil))
}

func TestObfuscationMode_String(t *testing.T) {
	require.Equal(t, "obfuscate", ModeObfuscate.String())
	require.Equal(t, "exclude", ModeExclude.String())
	require.Equal(t, "inherit", ModeInherit.String())
	require.Equal(t, "inherit-overridable", ModeInheritOverridable.String())
	require.Equal(t, "ObfuscationMode(9)", ObfuscationMode(9).String())
}
